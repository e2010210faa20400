package models

import (
	"time"

	"github.com/lib/pq"
)

// SubjectGroup classifies courses by the entrance exam they prepare for.
type SubjectGroup string

const (
	GroupEngineering    SubjectGroup = "engenharias"
	GroupHealth         SubjectGroup = "saude"
	GroupSocialSciences SubjectGroup = "ciencias_sociais"
)

// Course is read-mostly catalog data.
type Course struct {
	Code           string         `db:"code" json:"code"`
	Name           string         `db:"name" json:"name"`
	SubjectGroup   SubjectGroup   `db:"subject_group" json:"subject_group"`
	Subjects       pq.StringArray `db:"subjects" json:"subjects"`
	WeeklySchedule WeeklySchedule `db:"weekly_schedule" json:"weekly_schedule"`
	Active         bool           `db:"active" json:"active"`
}

// DefaultRoomType is used for rooms created implicitly from a free-text code.
const DefaultRoomType = "sala_aula"

// Room (sala) is reference data looked up, or created, by code.
type Room struct {
	Code      string    `db:"code" json:"code"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Type      string    `db:"type" json:"type"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
