package service

import (
	"github.com/kesbangpol-dev/perizinan-api/internal/models"
)

// File slot names shared by both permit forms.
const (
	SlotSuratPengantar = "suratPengantarFile"
	SlotProposal       = "proposalFile"
	SlotKTP            = "ktpFile"
)

var penelitianDefinition = models.IntakeDefinition{
	Service:    models.ServicePenelitian,
	Collection: "permohonan_penelitian",
	RequiredFields: []string{
		"name",
		"researcherName",
		"address",
		"inputValue",
		"institution",
		"occupation",
		"judulPenelitian",
		"researchField",
		"tujuanPenelitian",
		"supervisorName",
		"teamMembers",
		"statusPenelitian",
		"researchPeriod",
		"researchLocation",
	},
	OptionalFields: []string{"letterNumber"},
	FileSlots:      []string{SlotSuratPengantar, SlotProposal, SlotKTP},
}

var magangDefinition = models.IntakeDefinition{
	Service:    models.ServiceMagang,
	Collection: "permohonan_magang",
	RequiredFields: []string{
		"letterNumber",
		"name",
		"address",
		"inputValue",
		"institution",
		"occupation",
		"judul",
		"supervisorName",
		"tujuanPermohonan",
		"teamMembers",
		"statusPermohonan",
		"period",
		"location",
	},
	FileSlots: []string{SlotSuratPengantar, SlotProposal, SlotKTP},
}

var definitions = map[models.ServiceType]models.IntakeDefinition{
	models.ServicePenelitian: penelitianDefinition,
	models.ServiceMagang:     magangDefinition,
}

// DefinitionFor returns the intake definition for a service type.
func DefinitionFor(service models.ServiceType) (models.IntakeDefinition, bool) {
	def, ok := definitions[service]
	return def, ok
}
