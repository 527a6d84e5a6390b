package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/errs"
	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/AutoAid/ServiceDesk/internal/status"
)

// Backend — in-memory заглушка платформенного бэкенда для dev-режима
// и тестов. Поведение повторяет серверное: create даёт pending,
// смена статуса дописывает journal-запись, assign резолвит механика
// из собственного ростера.
type Backend struct {
	mu sync.Mutex

	requests  map[string]*models.ServiceRequest
	reqOrder  []string
	mechanics map[string]*models.Mechanic
	mechOrder []string

	reqSeq  int
	mechSeq int
}

func New() *Backend {
	return &Backend{
		requests:  map[string]*models.ServiceRequest{},
		mechanics: map[string]*models.Mechanic{},
	}
}

func (b *Backend) ListServiceRequests(_ context.Context) ([]*models.ServiceRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.ServiceRequest, 0, len(b.reqOrder))
	for _, id := range b.reqOrder {
		out = append(out, b.requests[id].Clone())
	}
	return out, nil
}

func (b *Backend) CreateServiceRequest(_ context.Context, in backend.RequestCreateInput) (*models.ServiceRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	b.reqSeq++
	r := &models.ServiceRequest{
		ID:          fmt.Sprintf("sr-%d", b.reqSeq),
		Customer:    in.Customer,
		ServiceType: in.ServiceType,
		Description: in.Description,
		Location:    in.Location,
		Priority:    in.Priority,
		Status:      status.Pending,
		Timeline:    []models.TimelineEntry{{Status: status.Pending, Timestamp: now}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.Priority == "" {
		r.Priority = models.PriorityMedium
	}
	b.requests[r.ID] = r
	b.reqOrder = append(b.reqOrder, r.ID)
	return r.Clone(), nil
}

func (b *Backend) UpdateServiceRequest(_ context.Context, id string, upd backend.RequestUpdate) (*models.ServiceRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.requests[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := r.Clone()
	if upd.Description != nil {
		cp.Description = *upd.Description
	}
	if upd.Notes != nil {
		cp.Notes = *upd.Notes
	}
	if upd.Priority != nil {
		cp.Priority = *upd.Priority
	}
	if upd.ScheduledDate != nil {
		cp.ScheduledDate = *upd.ScheduledDate
	}
	if upd.ScheduledTime != nil {
		cp.ScheduledTime = *upd.ScheduledTime
	}
	if upd.EstimatedCost != nil {
		cp.EstimatedCost = *upd.EstimatedCost
	}
	if upd.ActualCost != nil {
		cp.ActualCost = *upd.ActualCost
	}
	if upd.Feedback != nil {
		f := *upd.Feedback
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now().UTC()
		}
		cp.Feedback = &f
	}
	cp.UpdatedAt = time.Now().UTC()
	b.requests[id] = cp
	return cp.Clone(), nil
}

func (b *Backend) AssignMechanic(_ context.Context, id, mechanicID string) (*models.ServiceRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.requests[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	m, ok := b.mechanics[mechanicID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := r.Clone()
	cp.Mechanic = &models.MechanicRef{ID: m.ID, Name: m.Name, Phone: m.Phone}
	cp.UpdatedAt = time.Now().UTC()
	b.requests[id] = cp
	return cp.Clone(), nil
}

func (b *Backend) UpdateRequestStatus(_ context.Context, id, st string) (*models.ServiceRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.requests[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	now := time.Now().UTC()
	cp := r.Clone()
	cp.Status = status.Normalize(st)
	cp.Timeline = append(cp.Timeline, models.TimelineEntry{Status: cp.Status, Timestamp: now})
	cp.UpdatedAt = now
	b.requests[id] = cp
	return cp.Clone(), nil
}

func (b *Backend) DeleteServiceRequest(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.requests[id]; !ok {
		return errs.ErrNotFound
	}
	delete(b.requests, id)
	for i, rid := range b.reqOrder {
		if rid == id {
			b.reqOrder = append(b.reqOrder[:i], b.reqOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (b *Backend) ListMechanics(_ context.Context) ([]*models.Mechanic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.Mechanic, 0, len(b.mechOrder))
	for _, id := range b.mechOrder {
		out = append(out, b.mechanics[id].Clone())
	}
	return out, nil
}

func (b *Backend) CreateMechanic(_ context.Context, m *models.Mechanic) (*models.Mechanic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := m.Clone()
	if cp.ID == "" {
		b.mechSeq++
		cp.ID = fmt.Sprintf("mech-%d", b.mechSeq)
	}
	if cp.Availability == "" {
		cp.Availability = models.AvailabilityOffline
	}
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	b.mechanics[cp.ID] = cp
	b.mechOrder = append(b.mechOrder, cp.ID)
	return cp.Clone(), nil
}

func (b *Backend) UpdateMechanic(_ context.Context, m *models.Mechanic) (*models.Mechanic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old, ok := b.mechanics[m.ID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := m.Clone()
	// серверные проекции клиент не перезаписывает
	cp.Rating = old.Rating
	cp.CompletedServices = old.CompletedServices
	cp.CurrentLocation = old.CurrentLocation
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	b.mechanics[m.ID] = cp
	return cp.Clone(), nil
}

func (b *Backend) DeleteMechanic(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.mechanics[id]; !ok {
		return errs.ErrNotFound
	}
	// Удаление механика, на которого ещё ссылаются активные заявки,
	// бэкенд допускает: ссылка остаётся висячей (наблюдаемое поведение).
	delete(b.mechanics, id)
	for i, mid := range b.mechOrder {
		if mid == id {
			b.mechOrder = append(b.mechOrder[:i], b.mechOrder[i+1:]...)
			break
		}
	}
	return nil
}

// SetMechanicTelemetry — эмуляция серверной GPS-телеметрии
// (last-write-wins), для dev-режима.
func (b *Backend) SetMechanicTelemetry(id string, lat, lng float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.mechanics[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	cp := m.Clone()
	cp.CurrentLocation = &models.GeoPoint{Latitude: lat, Longitude: lng, LastUpdated: &now}
	b.mechanics[id] = cp
}
