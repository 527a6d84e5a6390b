package resthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AutoAid/ServiceDesk/internal/auth"
	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/errs"
	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/pkg/errors"
)

// Client — боевой REST-клиент бэкенда платформы. Токен берётся из
// контекста запроса (кука token), без токена команда падает локально
// с ErrUnauthenticated, до сети не доходим.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// errorBody — структурная ошибка сервера. Предпочитаем message,
// затем error, затем generic-строку с кодом.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	tok := auth.FromContext(ctx)
	if tok == "" {
		return errs.ErrUnauthenticated
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal body")
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errs.ErrNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return errs.ErrUnauthenticated
	}
	if resp.StatusCode/100 != 2 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		switch {
		case eb.Message != "":
			return fmt.Errorf("backend: %s", eb.Message)
		case eb.Error != "":
			return fmt.Errorf("backend: %s", eb.Error)
		default:
			return fmt.Errorf("backend http %d", resp.StatusCode)
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

func (c *Client) ListServiceRequests(ctx context.Context) ([]*models.ServiceRequest, error) {
	var raws []*backend.RawServiceRequest
	if err := c.do(ctx, http.MethodGet, "/service-requests", nil, &raws); err != nil {
		return nil, err
	}
	out := make([]*models.ServiceRequest, 0, len(raws))
	for _, raw := range raws {
		if r := backend.NormalizeServiceRequest(raw); r != nil && r.ID != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) CreateServiceRequest(ctx context.Context, in backend.RequestCreateInput) (*models.ServiceRequest, error) {
	body := map[string]any{
		"customer": backend.RawCustomer{
			ID: in.Customer.ID, Name: in.Customer.Name,
			Email: in.Customer.Email, Phone: in.Customer.Phone,
		},
		"serviceType": in.ServiceType,
		"description": in.Description,
		"priority":    in.Priority,
		"location": backend.RawLocation{
			Street: in.Location.Street, City: in.Location.City,
			State: in.Location.State, PostalCode: in.Location.PostalCode,
		},
	}
	var raw backend.RawServiceRequest
	if err := c.do(ctx, http.MethodPost, "/service-requests", body, &raw); err != nil {
		return nil, err
	}
	return backend.NormalizeServiceRequest(&raw), nil
}

func (c *Client) UpdateServiceRequest(ctx context.Context, id string, upd backend.RequestUpdate) (*models.ServiceRequest, error) {
	body := map[string]any{}
	if upd.Description != nil {
		body["description"] = *upd.Description
	}
	if upd.Notes != nil {
		body["notes"] = *upd.Notes
	}
	if upd.Priority != nil {
		body["priority"] = *upd.Priority
	}
	if upd.ScheduledDate != nil {
		body["scheduledDate"] = *upd.ScheduledDate
	}
	if upd.ScheduledTime != nil {
		body["scheduledTime"] = *upd.ScheduledTime
	}
	if upd.EstimatedCost != nil {
		body["estimatedCost"] = *upd.EstimatedCost
	}
	if upd.ActualCost != nil {
		body["actualCost"] = *upd.ActualCost
	}
	if upd.Feedback != nil {
		fb := backend.RawFeedback{
			Rating:           upd.Feedback.Rating,
			Comment:          upd.Feedback.Comment,
			Recommend:        upd.Feedback.Recommend,
			Liked:            upd.Feedback.Liked,
			NeedsImprovement: upd.Feedback.NeedsImprovement,
		}
		if upd.Feedback.SubRatings != nil {
			fb.SubRatings = &backend.RawSubRatings{
				WorkQuality:     upd.Feedback.SubRatings.WorkQuality,
				Punctuality:     upd.Feedback.SubRatings.Punctuality,
				Communication:   upd.Feedback.SubRatings.Communication,
				Professionalism: upd.Feedback.SubRatings.Professionalism,
				Value:           upd.Feedback.SubRatings.Value,
			}
		}
		body["feedback"] = fb
	}
	var raw backend.RawServiceRequest
	if err := c.do(ctx, http.MethodPut, "/service-requests/"+id, body, &raw); err != nil {
		return nil, err
	}
	return backend.NormalizeServiceRequest(&raw), nil
}

func (c *Client) AssignMechanic(ctx context.Context, id, mechanicID string) (*models.ServiceRequest, error) {
	var raw backend.RawServiceRequest
	body := map[string]string{"mechanicId": mechanicID}
	if err := c.do(ctx, http.MethodPut, "/service-requests/"+id+"/assign", body, &raw); err != nil {
		return nil, err
	}
	return backend.NormalizeServiceRequest(&raw), nil
}

func (c *Client) UpdateRequestStatus(ctx context.Context, id, st string) (*models.ServiceRequest, error) {
	var raw backend.RawServiceRequest
	body := map[string]string{"status": st}
	if err := c.do(ctx, http.MethodPut, "/service-requests/"+id+"/status", body, &raw); err != nil {
		return nil, err
	}
	return backend.NormalizeServiceRequest(&raw), nil
}

func (c *Client) DeleteServiceRequest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/service-requests/"+id, nil, nil)
}

func (c *Client) ListMechanics(ctx context.Context) ([]*models.Mechanic, error) {
	var raws []*backend.RawMechanic
	if err := c.do(ctx, http.MethodGet, "/mechanics", nil, &raws); err != nil {
		return nil, err
	}
	out := make([]*models.Mechanic, 0, len(raws))
	for _, raw := range raws {
		if m := backend.NormalizeMechanic(raw); m != nil && m.ID != "" {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Client) CreateMechanic(ctx context.Context, m *models.Mechanic) (*models.Mechanic, error) {
	var raw backend.RawMechanic
	if err := c.do(ctx, http.MethodPost, "/mechanics", mechanicBody(m), &raw); err != nil {
		return nil, err
	}
	return backend.NormalizeMechanic(&raw), nil
}

func (c *Client) UpdateMechanic(ctx context.Context, m *models.Mechanic) (*models.Mechanic, error) {
	var raw backend.RawMechanic
	if err := c.do(ctx, http.MethodPut, "/mechanics/"+m.ID, mechanicBody(m), &raw); err != nil {
		return nil, err
	}
	return backend.NormalizeMechanic(&raw), nil
}

func (c *Client) DeleteMechanic(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/mechanics/"+id, nil, nil)
}

func mechanicBody(m *models.Mechanic) map[string]any {
	return map[string]any{
		"name":             m.Name,
		"phone":            m.Phone,
		"nationalId":       m.NationalID,
		"emergencyContact": m.EmergencyContact,
		"address": backend.RawLocation{
			Street: m.Address.Street, City: m.Address.City,
			State: m.Address.State, PostalCode: m.Address.PostalCode,
		},
		"specializations": m.Specializations,
		"availability":    m.Availability,
		"experience":      m.Experience,
		"joiningDate":     m.JoiningDate,
	}
}
