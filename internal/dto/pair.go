package dto

import "github.com/noah-isme/preparatorio-aauma-api/internal/models"

// PairView is the reconciled, display-ready view of a course pair and its two classes.
type PairView struct {
	models.CoursePair
	ClassA        *ClassView `json:"classA"`
	ClassB        *ClassView `json:"classB"`
	TotalEnrolled int        `json:"totalEnrolled"`
	TotalCapacity int        `json:"totalCapacity"`
}

// Class returns the view of the given variant, or nil when the pair has no such class.
func (p *PairView) Class(variant models.ClassVariant) *ClassView {
	switch variant {
	case models.VariantA:
		return p.ClassA
	case models.VariantB:
		return p.ClassB
	}
	return nil
}

// Classes returns the pair's classes in variant order, skipping missing ones.
func (p *PairView) Classes() []*ClassView {
	out := make([]*ClassView, 0, 2)
	if p.ClassA != nil {
		out = append(out, p.ClassA)
	}
	if p.ClassB != nil {
		out = append(out, p.ClassB)
	}
	return out
}

// ClassView is a class with its students. EnrolledCount is always the true row count.
type ClassView struct {
	models.Class
	Students         []models.Student      `json:"students"`
	AvailableSeats   int                   `json:"availableSeats"`
	OccupancyPercent float64               `json:"occupancyPercent"`
	Schedule         models.WeeklySchedule `json:"schedule"`
	Corrected        bool                  `json:"corrected"`
}

// IsFull reports whether no seat is left.
func (c *ClassView) IsFull() bool {
	return c.EnrolledCount >= c.Capacity
}

// EnrollmentResult is returned after a successful enrollment.
type EnrollmentResult struct {
	Student models.Student `json:"student"`
	Pair    *PairView      `json:"pair,omitempty"`
}

// PublicPair is the subset of a pair offered on the public enrollment form.
type PublicPair struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Period         models.Period         `json:"period"`
	PeriodLabel    string                `json:"periodLabel"`
	CourseCodes    []string              `json:"courseCodes"`
	CommonSubjects []string              `json:"commonSubjects"`
	Classes        []PublicClass         `json:"classes"`
	Schedule       models.WeeklySchedule `json:"schedule"`
}

// PublicClass exposes seat availability without student data.
type PublicClass struct {
	Variant        models.ClassVariant   `json:"variant"`
	RoomCode       string                `json:"roomCode"`
	AvailableSeats int                   `json:"availableSeats"`
	Full           bool                  `json:"full"`
	Schedule       models.WeeklySchedule `json:"schedule"`
}

// EnrollmentSuccess is shown on the public success page.
type EnrollmentSuccess struct {
	StudentNumber string  `json:"studentNumber"`
	Name          string  `json:"name"`
	CourseCode    string  `json:"courseCode"`
	PairName      string  `json:"pairName"`
	Variant       string  `json:"variant"`
	ShiftLabel    string  `json:"shiftLabel"`
	AmountDue     float64 `json:"amountDue"`
	DurationLabel string  `json:"durationLabel"`
	StartDate     string  `json:"startDate"`
}
