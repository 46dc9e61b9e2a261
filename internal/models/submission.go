package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ServiceType identifies which permit form a submission belongs to. It
// determines the field schema, the expected file slots, and the destination
// collection.
type ServiceType string

const (
	ServicePenelitian ServiceType = "penelitian"
	ServiceMagang     ServiceType = "magang"
)

// Submission is one persisted, validated form submission. Records are
// append-only: never updated or deleted by this system.
type Submission struct {
	ID         string         `db:"id" json:"id"`
	Collection string         `db:"collection" json:"collection"`
	Payload    types.JSONText `db:"payload" json:"payload"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}
