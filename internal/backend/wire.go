package backend

import "time"

// Сырые формы бэкенда. Почти всё optional: исторически payload
// нестрого типизирован, поэтому каждое вложенное поле — указатель,
// а дефолты проставляет нормализация (normalize.go).

type RawCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type RawGeoPoint struct {
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

type RawLocation struct {
	Street      string       `json:"street"`
	City        string       `json:"city"`
	State       string       `json:"state"`
	PostalCode  string       `json:"postalCode"`
	Coordinates *RawGeoPoint `json:"coordinates,omitempty"`
}

type RawMechanicRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type RawTimelineEntry struct {
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Note      string     `json:"note,omitempty"`
}

type RawSubRatings struct {
	WorkQuality     int `json:"workQuality"`
	Punctuality     int `json:"punctuality"`
	Communication   int `json:"communication"`
	Professionalism int `json:"professionalism"`
	Value           int `json:"value"`
}

type RawFeedback struct {
	Rating           int            `json:"rating"`
	Comment          string         `json:"comment"`
	SubRatings       *RawSubRatings `json:"subRatings,omitempty"`
	Recommend        bool           `json:"recommend"`
	Liked            []string       `json:"liked,omitempty"`
	NeedsImprovement []string       `json:"needsImprovement,omitempty"`
	CreatedAt        *time.Time     `json:"createdAt,omitempty"`
}

type RawServiceRequest struct {
	ID          string          `json:"id"`
	Customer    *RawCustomer    `json:"customer,omitempty"`
	Mechanic    *RawMechanicRef `json:"mechanic,omitempty"`
	ServiceType string          `json:"serviceType"`
	Description string          `json:"description"`
	Location    *RawLocation    `json:"location,omitempty"`

	ScheduledDate string `json:"scheduledDate,omitempty"`
	ScheduledTime string `json:"scheduledTime,omitempty"`

	Priority string `json:"priority"`
	Status   string `json:"status"`

	EstimatedCost float64 `json:"estimatedCost"`
	ActualCost    float64 `json:"actualCost"`

	Notes    string             `json:"notes"`
	Timeline []RawTimelineEntry `json:"timeline,omitempty"`

	Feedback *RawFeedback `json:"feedback,omitempty"`
	// Легаси-пара: плоский рейтинг/отзыв. Проигрывает вложенному
	// feedback, если присутствуют оба.
	CustomerRating int    `json:"customerRating,omitempty"`
	CustomerReview string `json:"customerReview,omitempty"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type RawMechanic struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	NationalID       string `json:"nationalId"`
	EmergencyContact string `json:"emergencyContact"`

	Address *RawLocation `json:"address,omitempty"`

	Specializations []string `json:"specializations,omitempty"`
	Availability    string   `json:"availability"`
	Experience      string   `json:"experience"`
	JoiningDate     string   `json:"joiningDate"`

	Rating            float64 `json:"rating"`
	CompletedServices int     `json:"completedServices"`

	CurrentLocation *RawGeoPoint `json:"currentLocation,omitempty"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
