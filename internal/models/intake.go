package models

// IntakeDefinition parameterizes the generic intake pipeline for one service
// type. The two permit flows are behaviorally identical and differ only in
// this record.
type IntakeDefinition struct {
	Service    ServiceType
	Collection string

	// RequiredFields is ordered: validation reports the first missing field
	// and checks no further.
	RequiredFields []string
	// OptionalFields are captured when present but never block a submission.
	OptionalFields []string
	// FileSlots is ordered for the same first-offender reporting.
	FileSlots []string
}
