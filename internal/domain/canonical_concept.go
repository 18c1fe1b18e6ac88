package domain

import (
	"github.com/google/uuid"
)

// CanonicalConcept is the deduplicated graph-side identity node. It lives in
// the graph store, not in postgres; this struct is its in-process shape.
// Created once per (tenant, canonical_name); later promotions link to it and
// accumulate surface forms, never overwrite its fields.
type CanonicalConcept struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	CanonicalName string
	Type          string
	Quality       float64
	SurfaceForms  []string
	Cataloged     bool
}

// Relation is a typed edge between two promoted canonical concepts.
type Relation struct {
	TenantID     uuid.UUID
	SourceID     uuid.UUID
	TargetID     uuid.UUID
	Type         string
	Confidence   float64
	SegmentIndex int
	Producer     string
}
