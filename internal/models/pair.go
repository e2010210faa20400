package models

import (
	"time"

	"github.com/lib/pq"
)

// Period is the shift a course pair is taught in.
type Period string

const (
	PeriodMorning   Period = "manha"
	PeriodAfternoon Period = "tarde"
)

// CoursePair groups the two parallel classes (turma A and turma B) that share a period
// and a set of courses.
type CoursePair struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Period         Period         `db:"period" json:"period"`
	PeriodLabel    string         `db:"period_label" json:"period_label"`
	CourseCodes    pq.StringArray `db:"course_codes" json:"course_codes"`
	CommonSubjects pq.StringArray `db:"common_subjects" json:"common_subjects"`
	WeeklySchedule WeeklySchedule `db:"weekly_schedule" json:"weekly_schedule"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CoursePairFilter narrows pair listings.
type CoursePairFilter struct {
	ActiveOnly bool
	Search     string
}
