package backend

import (
	"strings"

	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/AutoAid/ServiceDesk/internal/status"
)

// Единственная граница нормализации: сырая запись -> типизированная
// модель. Отсутствие любого optional-поля даёт нейтральный дефолт,
// а не панику. Все фоллбэки живут здесь, не размазаны по коду.

func NormalizeServiceRequest(raw *RawServiceRequest) *models.ServiceRequest {
	if raw == nil {
		return nil
	}

	r := &models.ServiceRequest{
		ID:          raw.ID,
		ServiceType: raw.ServiceType,
		Description: raw.Description,

		ScheduledDate: raw.ScheduledDate,
		ScheduledTime: raw.ScheduledTime,

		Priority: normalizePriority(raw.Priority),
		Status:   status.Normalize(raw.Status),

		EstimatedCost: raw.EstimatedCost,
		ActualCost:    raw.ActualCost,
		Notes:         raw.Notes,
	}

	if raw.Customer != nil {
		r.Customer = models.Customer{
			ID:    raw.Customer.ID,
			Name:  raw.Customer.Name,
			Email: raw.Customer.Email,
			Phone: raw.Customer.Phone,
		}
	}
	if raw.Mechanic != nil && raw.Mechanic.ID != "" {
		r.Mechanic = &models.MechanicRef{
			ID:    raw.Mechanic.ID,
			Name:  raw.Mechanic.Name,
			Phone: raw.Mechanic.Phone,
		}
	}
	if raw.Location != nil {
		r.Location = normalizeLocation(raw.Location)
	}

	if raw.CreatedAt != nil {
		r.CreatedAt = raw.CreatedAt.UTC()
	}
	if raw.UpdatedAt != nil {
		r.UpdatedAt = raw.UpdatedAt.UTC()
	} else {
		r.UpdatedAt = r.CreatedAt
	}

	for _, e := range raw.Timeline {
		ts := r.CreatedAt
		if e.Timestamp != nil {
			ts = e.Timestamp.UTC()
		}
		r.Timeline = append(r.Timeline, models.TimelineEntry{
			Status:    status.Normalize(e.Status),
			Timestamp: ts,
			Note:      e.Note,
		})
	}
	// Журнал пустой — синтезируем одну запись текущего статуса,
	// чтобы потребителям не приходилось обрабатывать nil.
	if len(r.Timeline) == 0 {
		r.Timeline = []models.TimelineEntry{{Status: r.Status, Timestamp: r.UpdatedAt}}
	}

	r.Feedback = normalizeFeedback(raw)
	return r
}

// normalizeFeedback: вложенный документ важнее легаси-пары
// {customerRating, customerReview}.
func normalizeFeedback(raw *RawServiceRequest) *models.Feedback {
	if raw.Feedback != nil && raw.Feedback.Rating > 0 {
		f := &models.Feedback{
			Rating:           raw.Feedback.Rating,
			Comment:          raw.Feedback.Comment,
			Recommend:        raw.Feedback.Recommend,
			Liked:            raw.Feedback.Liked,
			NeedsImprovement: raw.Feedback.NeedsImprovement,
		}
		if raw.Feedback.SubRatings != nil {
			f.SubRatings = &models.SubRatings{
				WorkQuality:     raw.Feedback.SubRatings.WorkQuality,
				Punctuality:     raw.Feedback.SubRatings.Punctuality,
				Communication:   raw.Feedback.SubRatings.Communication,
				Professionalism: raw.Feedback.SubRatings.Professionalism,
				Value:           raw.Feedback.SubRatings.Value,
			}
		}
		if raw.Feedback.CreatedAt != nil {
			f.CreatedAt = raw.Feedback.CreatedAt.UTC()
		}
		return f
	}
	if raw.CustomerRating > 0 {
		return &models.Feedback{
			Rating:  raw.CustomerRating,
			Comment: raw.CustomerReview,
		}
	}
	return nil
}

func NormalizeMechanic(raw *RawMechanic) *models.Mechanic {
	if raw == nil {
		return nil
	}
	m := &models.Mechanic{
		ID:                raw.ID,
		Name:              raw.Name,
		Phone:             raw.Phone,
		NationalID:        raw.NationalID,
		EmergencyContact:  raw.EmergencyContact,
		Specializations:   raw.Specializations,
		Availability:      normalizeAvailability(raw.Availability),
		Experience:        raw.Experience,
		JoiningDate:       raw.JoiningDate,
		Rating:            raw.Rating,
		CompletedServices: raw.CompletedServices,
	}
	if raw.Address != nil {
		m.Address = normalizeLocation(raw.Address)
	}
	if raw.CurrentLocation != nil {
		m.CurrentLocation = &models.GeoPoint{
			Latitude:    raw.CurrentLocation.Latitude,
			Longitude:   raw.CurrentLocation.Longitude,
			LastUpdated: raw.CurrentLocation.LastUpdated,
		}
	}
	if raw.CreatedAt != nil {
		m.CreatedAt = raw.CreatedAt.UTC()
	}
	if raw.UpdatedAt != nil {
		m.UpdatedAt = raw.UpdatedAt.UTC()
	}
	return m
}

func normalizeLocation(raw *RawLocation) models.Location {
	l := models.Location{
		Street:     raw.Street,
		City:       raw.City,
		State:      raw.State,
		PostalCode: raw.PostalCode,
	}
	if raw.Coordinates != nil {
		l.Coordinates = &models.GeoPoint{
			Latitude:    raw.Coordinates.Latitude,
			Longitude:   raw.Coordinates.Longitude,
			LastUpdated: raw.Coordinates.LastUpdated,
		}
	}
	return l
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case models.PriorityLow:
		return models.PriorityLow
	case models.PriorityMedium, "normal":
		return models.PriorityMedium
	case models.PriorityHigh:
		return models.PriorityHigh
	case models.PriorityUrgent:
		return models.PriorityUrgent
	case models.PriorityCritical:
		return models.PriorityCritical
	default:
		return models.PriorityMedium
	}
}

func normalizeAvailability(a string) string {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case models.AvailabilityAvailable:
		return models.AvailabilityAvailable
	case models.AvailabilityBusy:
		return models.AvailabilityBusy
	case models.AvailabilityOffline:
		return models.AvailabilityOffline
	default:
		return models.AvailabilityOffline
	}
}

// DenormalizeServiceRequest — обратное отображение для публикации
// записи в аудит-фид (и для fake-бэкенда).
func DenormalizeServiceRequest(r *models.ServiceRequest) *RawServiceRequest {
	if r == nil {
		return nil
	}
	raw := &RawServiceRequest{
		ID: r.ID,
		Customer: &RawCustomer{
			ID: r.Customer.ID, Name: r.Customer.Name,
			Email: r.Customer.Email, Phone: r.Customer.Phone,
		},
		ServiceType:   r.ServiceType,
		Description:   r.Description,
		ScheduledDate: r.ScheduledDate,
		ScheduledTime: r.ScheduledTime,
		Priority:      r.Priority,
		Status:        r.Status,
		EstimatedCost: r.EstimatedCost,
		ActualCost:    r.ActualCost,
		Notes:         r.Notes,
	}
	if r.Mechanic != nil {
		raw.Mechanic = &RawMechanicRef{ID: r.Mechanic.ID, Name: r.Mechanic.Name, Phone: r.Mechanic.Phone}
	}
	loc := RawLocation{
		Street: r.Location.Street, City: r.Location.City,
		State: r.Location.State, PostalCode: r.Location.PostalCode,
	}
	if r.Location.Coordinates != nil {
		loc.Coordinates = &RawGeoPoint{
			Latitude:    r.Location.Coordinates.Latitude,
			Longitude:   r.Location.Coordinates.Longitude,
			LastUpdated: r.Location.Coordinates.LastUpdated,
		}
	}
	raw.Location = &loc

	for _, e := range r.Timeline {
		ts := e.Timestamp
		raw.Timeline = append(raw.Timeline, RawTimelineEntry{Status: e.Status, Timestamp: &ts, Note: e.Note})
	}
	if r.Feedback != nil {
		f := &RawFeedback{
			Rating:           r.Feedback.Rating,
			Comment:          r.Feedback.Comment,
			Recommend:        r.Feedback.Recommend,
			Liked:            r.Feedback.Liked,
			NeedsImprovement: r.Feedback.NeedsImprovement,
		}
		if r.Feedback.SubRatings != nil {
			f.SubRatings = &RawSubRatings{
				WorkQuality:     r.Feedback.SubRatings.WorkQuality,
				Punctuality:     r.Feedback.SubRatings.Punctuality,
				Communication:   r.Feedback.SubRatings.Communication,
				Professionalism: r.Feedback.SubRatings.Professionalism,
				Value:           r.Feedback.SubRatings.Value,
			}
		}
		if !r.Feedback.CreatedAt.IsZero() {
			t := r.Feedback.CreatedAt
			f.CreatedAt = &t
		}
		raw.Feedback = f
	}
	if !r.CreatedAt.IsZero() {
		t := r.CreatedAt
		raw.CreatedAt = &t
	}
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		raw.UpdatedAt = &t
	}
	return raw
}

func DenormalizeMechanic(m *models.Mechanic) *RawMechanic {
	if m == nil {
		return nil
	}
	raw := &RawMechanic{
		ID:                m.ID,
		Name:              m.Name,
		Phone:             m.Phone,
		NationalID:        m.NationalID,
		EmergencyContact:  m.EmergencyContact,
		Specializations:   m.Specializations,
		Availability:      m.Availability,
		Experience:        m.Experience,
		JoiningDate:       m.JoiningDate,
		Rating:            m.Rating,
		CompletedServices: m.CompletedServices,
	}
	addr := RawLocation{
		Street: m.Address.Street, City: m.Address.City,
		State: m.Address.State, PostalCode: m.Address.PostalCode,
	}
	if m.Address.Coordinates != nil {
		addr.Coordinates = &RawGeoPoint{
			Latitude:    m.Address.Coordinates.Latitude,
			Longitude:   m.Address.Coordinates.Longitude,
			LastUpdated: m.Address.Coordinates.LastUpdated,
		}
	}
	raw.Address = &addr
	if m.CurrentLocation != nil {
		raw.CurrentLocation = &RawGeoPoint{
			Latitude:    m.CurrentLocation.Latitude,
			Longitude:   m.CurrentLocation.Longitude,
			LastUpdated: m.CurrentLocation.LastUpdated,
		}
	}
	if !m.CreatedAt.IsZero() {
		t := m.CreatedAt
		raw.CreatedAt = &t
	}
	if !m.UpdatedAt.IsZero() {
		t := m.UpdatedAt
		raw.UpdatedAt = &t
	}
	return raw
}
