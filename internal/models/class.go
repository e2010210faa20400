package models

import "time"

// ClassVariant identifies the half of a course pair a class belongs to.
type ClassVariant string

const (
	VariantA ClassVariant = "A"
	VariantB ClassVariant = "B"
)

// Valid reports whether v is one of the two pair variants.
func (v ClassVariant) Valid() bool {
	return v == VariantA || v == VariantB
}

// Class is one physical section (turma) of a course pair. EnrolledCount caches the
// number of student rows pointing at the class and is reconciled on every load.
type Class struct {
	ID             string         `db:"id" json:"id"`
	PairID         string         `db:"pair_id" json:"pair_id"`
	Variant        ClassVariant   `db:"variant" json:"variant"`
	RoomCode       string         `db:"room_code" json:"room_code"`
	Capacity       int            `db:"capacity" json:"capacity"`
	EnrolledCount  int            `db:"enrolled_count" json:"enrolled_count"`
	WeeklySchedule WeeklySchedule `db:"weekly_schedule" json:"weekly_schedule"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
