package dto

// DashboardSummary aggregates enrollment figures from the reconciled pair view.
type DashboardSummary struct {
	TotalStudents  int              `json:"totalStudents"`
	TotalCapacity  int              `json:"totalCapacity"`
	OccupancyRate  float64          `json:"occupancyRate"`
	ActivePairs    int              `json:"activePairs"`
	ByStatus       map[string]int   `json:"byStatus"`
	ByPeriod       map[string]int   `json:"byPeriod"`
	ByVariant      map[string]int   `json:"byVariant"`
	ByCourse       map[string]int   `json:"byCourse"`
	PairOccupancy  []PairOccupancy  `json:"pairOccupancy"`
	RecentStudents []RecentEnrolled `json:"recentStudents"`
}

// PairOccupancy reports seats per pair and class.
type PairOccupancy struct {
	PairID    string  `json:"pairId"`
	PairName  string  `json:"pairName"`
	Active    bool    `json:"active"`
	EnrolledA int     `json:"enrolledA"`
	CapacityA int     `json:"capacityA"`
	EnrolledB int     `json:"enrolledB"`
	CapacityB int     `json:"capacityB"`
	Rate      float64 `json:"rate"`
}

// RecentEnrolled lists the latest enrollments.
type RecentEnrolled struct {
	StudentID     string `json:"studentId"`
	StudentNumber string `json:"studentNumber"`
	Name          string `json:"name"`
	PairName      string `json:"pairName"`
	Variant       string `json:"variant"`
	CreatedAt     string `json:"createdAt"`
}

// FinanceSummary totals payments. Cancelled students are excluded from both amounts.
type FinanceSummary struct {
	Fee             float64            `json:"fee"`
	PayingStudents  int                `json:"payingStudents"`
	Cancelled       int                `json:"cancelled"`
	CollectedAmount float64            `json:"collectedAmount"`
	ExpectedAmount  float64            `json:"expectedAmount"`
	Outstanding     float64            `json:"outstanding"`
	ByPaymentMethod map[string]float64 `json:"byPaymentMethod"`
	ByCourse        map[string]float64 `json:"byCourse"`
	ByPair          []PairRevenue      `json:"byPair"`
}

// PairRevenue is the collected amount per pair.
type PairRevenue struct {
	PairID    string  `json:"pairId"`
	PairName  string  `json:"pairName"`
	Students  int     `json:"students"`
	Collected float64 `json:"collected"`
}
