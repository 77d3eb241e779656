package models

// DashboardSnapshot is a read-only view of all three slices.
type DashboardSnapshot struct {
	ID       string       `json:"id"`
	Queries  QueriesState `json:"queries"`
	Profile  User         `json:"profile"`
	Settings Settings     `json:"settings"`
}
