package servicedesk_api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/errs"
	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/AutoAid/ServiceDesk/internal/services/mechanics"
	"github.com/AutoAid/ServiceDesk/internal/services/requests"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// ServiceDeskAPI — HTTP-поверхность админки поверх зеркал заявок
// и механиков. Наружу ходят сырые (wire) формы, внутрь — модели.
type ServiceDeskAPI struct {
	store     *requests.Store
	directory *mechanics.Directory
}

func New(store *requests.Store, directory *mechanics.Directory) *ServiceDeskAPI {
	return &ServiceDeskAPI{store: store, directory: directory}
}

func (a *ServiceDeskAPI) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/requests", func(r chi.Router) {
		r.Get("/", a.listRequests)
		r.Post("/", a.createRequest)
		r.Get("/stats", a.requestStats)
		r.Post("/bulk/status", a.bulkStatus)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getRequest)
			r.Patch("/", a.updateRequest)
			r.Delete("/", a.deleteRequest)
			r.Post("/assign", a.assignMechanic)
			r.Post("/status", a.advanceStatus)
			r.Post("/cancel", a.cancelRequest)
			r.Post("/feedback", a.recordFeedback)
			r.Get("/mechanic", a.resolveMechanic)
		})
	})

	r.Route("/mechanics", func(r chi.Router) {
		r.Get("/", a.listMechanics)
		r.Post("/", a.createMechanic)
		r.Get("/available", a.availableMechanics)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getMechanic)
			r.Put("/", a.updateMechanic)
			r.Delete("/", a.deleteMechanic)
		})
	})

	return r
}

type requestListResponse struct {
	Items   []*backend.RawServiceRequest `json:"items"`
	Total   int                          `json:"total"`
	Loading bool                         `json:"loading"`
	Error   string                       `json:"error,omitempty"`
}

func (a *ServiceDeskAPI) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list := a.store.List(requests.Filter{
		Query:       q.Get("q"),
		Status:      q.Get("status"),
		Priority:    q.Get("priority"),
		ServiceType: q.Get("serviceType"),
	})
	resp := requestListResponse{
		Items:   make([]*backend.RawServiceRequest, 0, len(list)),
		Total:   len(list),
		Loading: a.store.Loading(),
		Error:   a.store.LastError(),
	}
	for _, sr := range list {
		resp.Items = append(resp.Items, backend.DenormalizeServiceRequest(sr))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *ServiceDeskAPI) createRequest(w http.ResponseWriter, r *http.Request) {
	var raw backend.RawServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in := backend.RequestCreateInput{
		ServiceType: raw.ServiceType,
		Description: raw.Description,
		Priority:    raw.Priority,
	}
	if norm := backend.NormalizeServiceRequest(&raw); norm != nil {
		in.Customer = norm.Customer
		in.Location = norm.Location
		in.Priority = norm.Priority
	}
	if strings.TrimSpace(in.Customer.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("customer.name is required"))
		return
	}
	sr, err := a.store.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, backend.DenormalizeServiceRequest(sr))
}

// getRequest читает зеркало, при промахе — снапшот из redis-кэша:
// карточка отвечает и до первого полного Refresh свежего процесса.
func (a *ServiceDeskAPI) getRequest(w http.ResponseWriter, r *http.Request) {
	sr, ok := a.store.Current(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errs.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, backend.DenormalizeServiceRequest(sr))
}

type requestUpdateBody struct {
	Description   *string  `json:"description"`
	Notes         *string  `json:"notes"`
	Priority      *string  `json:"priority"`
	ScheduledDate *string  `json:"scheduledDate"`
	ScheduledTime *string  `json:"scheduledTime"`
	EstimatedCost *float64 `json:"estimatedCost"`
	ActualCost    *float64 `json:"actualCost"`
}

func (a *ServiceDeskAPI) updateRequest(w http.ResponseWriter, r *http.Request) {
	var body requestUpdateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sr, err := a.store.Update(r.Context(), chi.URLParam(r, "id"), backend.RequestUpdate{
		Description:   body.Description,
		Notes:         body.Notes,
		Priority:      body.Priority,
		ScheduledDate: body.ScheduledDate,
		ScheduledTime: body.ScheduledTime,
		EstimatedCost: body.EstimatedCost,
		ActualCost:    body.ActualCost,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.DenormalizeServiceRequest(sr))
}

func (a *ServiceDeskAPI) deleteRequest(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (a *ServiceDeskAPI) assignMechanic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MechanicID string `json:"mechanicId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.MechanicID == "" {
		writeError(w, http.StatusBadRequest, errors.New("mechanicId is required"))
		return
	}
	sr, err := a.store.Assign(r.Context(), chi.URLParam(r, "id"), body.MechanicID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.DenormalizeServiceRequest(sr))
}

func (a *ServiceDeskAPI) advanceStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sr, err := a.store.AdvanceStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.DenormalizeServiceRequest(sr))
}

func (a *ServiceDeskAPI) cancelRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sr, err := a.store.Cancel(r.Context(), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.DenormalizeServiceRequest(sr))
}

func (a *ServiceDeskAPI) recordFeedback(w http.ResponseWriter, r *http.Request) {
	var raw backend.RawFeedback
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if raw.Rating < 1 || raw.Rating > 5 {
		writeError(w, http.StatusBadRequest, errors.Errorf("rating must be between 1 and 5, got %d", raw.Rating))
		return
	}
	fb := models.Feedback{
		Rating:           raw.Rating,
		Comment:          raw.Comment,
		Recommend:        raw.Recommend,
		Liked:            raw.Liked,
		NeedsImprovement: raw.NeedsImprovement,
	}
	if raw.SubRatings != nil {
		fb.SubRatings = &models.SubRatings{
			WorkQuality:     raw.SubRatings.WorkQuality,
			Punctuality:     raw.SubRatings.Punctuality,
			Communication:   raw.SubRatings.Communication,
			Professionalism: raw.SubRatings.Professionalism,
			Value:           raw.SubRatings.Value,
		}
	}
	sr, err := a.store.RecordFeedback(r.Context(), chi.URLParam(r, "id"), fb)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.DenormalizeServiceRequest(sr))
}

// resolveMechanic отдаёт живую запись назначенного механика
// (снимок в заявке — слабая ссылка, GPS берётся из справочника).
func (a *ServiceDeskAPI) resolveMechanic(w http.ResponseWriter, r *http.Request) {
	sr, ok := a.store.Current(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errs.ErrNotFound)
		return
	}
	m, ok := a.store.ResolveMechanic(sr)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no mechanic assigned or mechanic unknown"))
		return
	}
	writeJSON(w, http.StatusOK, backend.DenormalizeMechanic(m))
}

func (a *ServiceDeskAPI) requestStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Stats())
}

func (a *ServiceDeskAPI) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs    []string `json:"ids"`
		Status string   `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body.IDs) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("ids is required"))
		return
	}
	// Частичный успех — нормальный исход, поэтому 200 всегда:
	// разбор по ids в теле ответа.
	writeJSON(w, http.StatusOK, a.store.BulkAdvanceStatus(r.Context(), body.IDs, body.Status))
}

type mechanicListResponse struct {
	Items   []*backend.RawMechanic `json:"items"`
	Total   int                    `json:"total"`
	Loading bool                   `json:"loading"`
	Error   string                 `json:"error,omitempty"`
}

func (a *ServiceDeskAPI) listMechanics(w http.ResponseWriter, r *http.Request) {
	list := a.directory.Search(r.URL.Query().Get("q"))
	resp := mechanicListResponse{
		Items:   make([]*backend.RawMechanic, 0, len(list)),
		Total:   len(list),
		Loading: a.directory.Loading(),
		Error:   a.directory.LastError(),
	}
	for _, m := range list {
		resp.Items = append(resp.Items, backend.DenormalizeMechanic(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *ServiceDeskAPI) availableMechanics(w http.ResponseWriter, r *http.Request) {
	list := a.directory.AvailableForAssignment()
	out := make([]*backend.RawMechanic, 0, len(list))
	for _, m := range list {
		out = append(out, backend.DenormalizeMechanic(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *ServiceDeskAPI) getMechanic(w http.ResponseWriter, r *http.Request) {
	m, ok := a.directory.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errs.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, backend.DenormalizeMechanic(m))
}

func (a *ServiceDeskAPI) createMechanic(w http.ResponseWriter, r *http.Request) {
	a.upsertMechanic(w, r, "")
}

func (a *ServiceDeskAPI) updateMechanic(w http.ResponseWriter, r *http.Request) {
	a.upsertMechanic(w, r, chi.URLParam(r, "id"))
}

func (a *ServiceDeskAPI) upsertMechanic(w http.ResponseWriter, r *http.Request, id string) {
	var raw backend.RawMechanic
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	raw.ID = id
	m := backend.NormalizeMechanic(&raw)
	if strings.TrimSpace(m.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	out, err := a.directory.Upsert(r.Context(), m)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	code := http.StatusOK
	if id == "" {
		code = http.StatusCreated
	}
	writeJSON(w, code, backend.DenormalizeMechanic(out))
}

func (a *ServiceDeskAPI) deleteMechanic(w http.ResponseWriter, r *http.Request) {
	if err := a.directory.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeDomainError мапит доменные отказы на HTTP-коды; всё прочее —
// отказ апстрима, 502.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, errs.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, errs.ErrAlreadyTerminal), errors.Is(err, errs.ErrDuplicateFeedback):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, errs.ErrInvalidTransition), errors.Is(err, errs.ErrInvalidState):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}
