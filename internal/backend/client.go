package backend

import (
	"context"

	"github.com/AutoAid/ServiceDesk/internal/models"
)

// RequestCreateInput — поля, задаваемые внешним интейк-флоу при создании.
// Статус бэкенд выставляет сам (pending).
type RequestCreateInput struct {
	Customer    models.Customer
	ServiceType string
	Description string
	Location    models.Location
	Priority    string
}

// RequestUpdate — частичное обновление: отправляются только
// ненулевые указатели.
type RequestUpdate struct {
	Description   *string
	Notes         *string
	Priority      *string
	ScheduledDate *string
	ScheduledTime *string
	EstimatedCost *float64
	ActualCost    *float64
	Feedback      *models.Feedback
}

// Client — контракт REST-бэкенда платформы. Реализации: resthttp
// (боевой) и fake (детерминированный, для dev-режима и тестов).
type Client interface {
	ListServiceRequests(ctx context.Context) ([]*models.ServiceRequest, error)
	CreateServiceRequest(ctx context.Context, in RequestCreateInput) (*models.ServiceRequest, error)
	UpdateServiceRequest(ctx context.Context, id string, upd RequestUpdate) (*models.ServiceRequest, error)
	AssignMechanic(ctx context.Context, id, mechanicID string) (*models.ServiceRequest, error)
	UpdateRequestStatus(ctx context.Context, id, status string) (*models.ServiceRequest, error)
	DeleteServiceRequest(ctx context.Context, id string) error

	ListMechanics(ctx context.Context) ([]*models.Mechanic, error)
	CreateMechanic(ctx context.Context, m *models.Mechanic) (*models.Mechanic, error)
	UpdateMechanic(ctx context.Context, m *models.Mechanic) (*models.Mechanic, error)
	DeleteMechanic(ctx context.Context, id string) error
}
