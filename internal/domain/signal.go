package domain

import "time"

// SignalPriority enumerates handling urgency.
type SignalPriority string

const (
	PriorityNormal SignalPriority = "NORMAL"
	PriorityHigh   SignalPriority = "HIGH"
)

// Reporter holds the contact information of the citizen who filed the signal.
type Reporter struct {
	Email string
	Phone string
}

// Location is the reported place of the nuisance. Signals without a full
// address are valid as long as coordinates are present.
type Location struct {
	City        string
	Street      string
	HouseNumber string
	PostalCode  string
	Borough     string
	Lat         float64
	Lng         float64
}

// ShortAddress returns a compact address line for external descriptions.
func (l Location) ShortAddress() string {
	if l.Street == "" {
		return l.City
	}
	if l.HouseNumber == "" {
		return l.Street
	}
	return l.Street + " " + l.HouseNumber
}

// Signal is the aggregate for citizen-reported complaints.
type Signal struct {
	ID            int64
	Title         string
	Text          string
	Priority      SignalPriority
	Reporter      Reporter
	Location      Location
	IncidentEndAt *time.Time
	Status        *Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
