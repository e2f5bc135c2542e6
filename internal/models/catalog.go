package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogKind names a reference catalog table.
type CatalogKind string

const (
	KindMachine        CatalogKind = "machine"
	KindPart           CatalogKind = "part"
	KindDowntimeReason CatalogKind = "downtime_reason"
)

// IsValidCatalogKind checks if a kind is known
func IsValidCatalogKind(k CatalogKind) bool {
	return k == KindMachine || k == KindPart || k == KindDowntimeReason
}

// CatalogEntry is one row of master data. Key is the stable human-facing
// identifier: machine code, part number or downtime reason code.
type CatalogEntry struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Kind            CatalogKind        `json:"kind" bson:"kind"`
	Key             string             `json:"key" bson:"key"`
	Label           string             `json:"label" bson:"label"`
	Department      string             `json:"department,omitempty" bson:"department,omitempty"`
	Category        string             `json:"category,omitempty" bson:"category,omitempty"`
	StdCycleTimeSec float64            `json:"std_cycle_time_sec,omitempty" bson:"std_cycle_time_sec,omitempty"`
	Active          bool               `json:"active" bson:"active"`
}
