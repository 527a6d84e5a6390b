package models

import "time"

// Приоритеты заявки. Advisory: на переходы статусов не влияют.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityUrgent   = "urgent"
	PriorityCritical = "critical"
)

// Customer — снимок данных клиента на момент создания заявки.
// Агрегат им не владеет и не редактирует.
type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// MechanicRef — слабая ссылка на механика. Живые поля (текущая геолокация)
// надо поднимать из справочника по ID, а не брать отсюда.
type MechanicRef struct {
	ID    string
	Name  string
	Phone string
}

type Location struct {
	Street      string
	City        string
	State       string
	PostalCode  string
	Coordinates *GeoPoint
}

type GeoPoint struct {
	Latitude    float64
	Longitude   float64
	LastUpdated *time.Time
}

// TimelineEntry — запись аудита смены статуса. Журнал append-only.
type TimelineEntry struct {
	Status    string
	Timestamp time.Time
	Note      string
}

type SubRatings struct {
	WorkQuality     int
	Punctuality     int
	Communication   int
	Professionalism int
	Value           int
}

// Feedback создаётся максимум один раз и только по завершённой заявке.
type Feedback struct {
	Rating           int
	Comment          string
	SubRatings       *SubRatings
	Recommend        bool
	Liked            []string
	NeedsImprovement []string
	CreatedAt        time.Time
}

type ServiceRequest struct {
	ID          string
	Customer    Customer
	Mechanic    *MechanicRef
	ServiceType string
	Description string
	Location    Location

	ScheduledDate string
	ScheduledTime string

	Priority string
	Status   string

	// Суммы в INR. ActualCost заполняется на/после completed.
	EstimatedCost float64
	ActualCost    float64

	Notes    string
	Timeline []TimelineEntry
	Feedback *Feedback

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMechanic — назначен ли механик (для подписи assign/reassign в UI).
func (r *ServiceRequest) HasMechanic() bool {
	return r.Mechanic != nil && r.Mechanic.ID != ""
}

// Clone возвращает глубокую копию. Зеркало работает по принципу
// copy-on-write: запись в коллекции целиком заменяется, на месте
// её никто не мутирует.
func (r *ServiceRequest) Clone() *ServiceRequest {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Mechanic != nil {
		m := *r.Mechanic
		cp.Mechanic = &m
	}
	if r.Location.Coordinates != nil {
		g := *r.Location.Coordinates
		cp.Location.Coordinates = &g
	}
	if r.Timeline != nil {
		cp.Timeline = make([]TimelineEntry, len(r.Timeline))
		copy(cp.Timeline, r.Timeline)
	}
	if r.Feedback != nil {
		f := *r.Feedback
		if r.Feedback.SubRatings != nil {
			sr := *r.Feedback.SubRatings
			f.SubRatings = &sr
		}
		f.Liked = append([]string(nil), r.Feedback.Liked...)
		f.NeedsImprovement = append([]string(nil), r.Feedback.NeedsImprovement...)
		cp.Feedback = &f
	}
	return &cp
}
