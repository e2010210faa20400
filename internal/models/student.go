package models

import "time"

// StudentStatus is free-form: any status may be changed to any other.
type StudentStatus string

const (
	StudentStatusEnrolled  StudentStatus = "inscrito"
	StudentStatusConfirmed StudentStatus = "confirmado"
	StudentStatusCancelled StudentStatus = "cancelado"
)

// StudentStatuses lists the known statuses in display order.
var StudentStatuses = []StudentStatus{StudentStatusEnrolled, StudentStatusConfirmed, StudentStatusCancelled}

// PaymentMethod records how the enrollment fee was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "dinheiro"
	PaymentTransfer PaymentMethod = "transferencia"
	PaymentCard     PaymentMethod = "cartao"
)

// PaymentMethods lists the accepted payment methods.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentTransfer, PaymentCard}

// Student (aluno) belongs to exactly one class and, through it, one course pair.
type Student struct {
	ID            string        `db:"id" json:"id"`
	StudentNumber string        `db:"student_number" json:"student_number"`
	Name          string        `db:"name" json:"name"`
	Email         *string       `db:"email" json:"email,omitempty"`
	Phone         string        `db:"phone" json:"phone"`
	NationalID    string        `db:"national_id" json:"national_id"`
	BirthDate     *time.Time    `db:"birth_date" json:"birth_date,omitempty"`
	Address       *string       `db:"address" json:"address,omitempty"`
	CourseCode    string        `db:"course_code" json:"course_code"`
	ClassID       string        `db:"class_id" json:"class_id"`
	PairID        string        `db:"pair_id" json:"pair_id"`
	ShiftLabel    string        `db:"shift_label" json:"shift_label"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	Status        StudentStatus `db:"status" json:"status"`
	AmountPaid    float64       `db:"amount_paid" json:"amount_paid"`
	DurationLabel string        `db:"duration_label" json:"duration_label"`
	StartDate     time.Time     `db:"start_date" json:"start_date"`
	DocumentPath  *string       `db:"document_path" json:"document_path,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
	CreatedBy     *string       `db:"created_by" json:"created_by,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	PairID     string
	ClassID    string
	CourseCode string
	Status     StudentStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
