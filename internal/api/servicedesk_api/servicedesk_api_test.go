package servicedesk_api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/backend/fake"
	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/AutoAid/ServiceDesk/internal/services/mechanics"
	"github.com/AutoAid/ServiceDesk/internal/services/requests"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *requests.Store, *mechanics.Directory) {
	t.Helper()
	b := fake.New()
	dir := mechanics.New(b)
	store := requests.New(b, dir, nil, 0)
	srv := httptest.NewServer(New(store, dir).Routes())
	t.Cleanup(srv.Close)
	return srv, store, dir
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPI_RequestLifecycle(t *testing.T) {
	srv, _, dir := newTestServer(t)

	resp := postJSON(t, srv.URL+"/requests", `{
		"customer": {"name": "Asha Patel", "phone": "9876543210"},
		"serviceType": "Engine Service",
		"priority": "normal"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[backend.RawServiceRequest](t, resp)
	require.Equal(t, "pending", created.Status)
	require.Equal(t, "medium", created.Priority) // normal -> medium

	m, err := dir.Upsert(context.Background(), &models.Mechanic{Name: "Ravi", Availability: models.AvailabilityAvailable})
	require.NoError(t, err)

	resp = postJSON(t, fmt.Sprintf("%s/requests/%s/assign", srv.URL, created.ID),
		fmt.Sprintf(`{"mechanicId":%q}`, m.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assigned := decode[backend.RawServiceRequest](t, resp)
	require.Equal(t, "pending", assigned.Status)
	require.Equal(t, m.ID, assigned.Mechanic.ID)

	for _, next := range []string{"assigned", "accepted", "on_way", "in-progress", "completed"} {
		resp = postJSON(t, fmt.Sprintf("%s/requests/%s/status", srv.URL, created.ID),
			fmt.Sprintf(`{"status":%q}`, next))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp = postJSON(t, fmt.Sprintf("%s/requests/%s/feedback", srv.URL, created.ID),
		`{"rating": 5, "comment": "great", "recommend": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decode[backend.RawServiceRequest](t, resp)
	require.Equal(t, "completed", done.Status)
	require.Equal(t, 5, done.Feedback.Rating)
	require.GreaterOrEqual(t, len(done.Timeline), 6)
}

type memCache struct {
	m map[string][]byte
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}
func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}
func (c *memCache) Del(ctx context.Context, key string) error {
	delete(c.m, key)
	return nil
}

func TestAPI_GetServesCachedSnapshotBeforeFirstRefresh(t *testing.T) {
	b := fake.New()
	c := &memCache{m: map[string][]byte{}}

	warm := requests.New(b, nil, c, time.Minute)
	r, err := warm.Create(context.Background(), backend.RequestCreateInput{
		Customer: models.Customer{Name: "Asha"},
	})
	require.NoError(t, err)

	// второй процесс: зеркало ещё пустое, кэш общий
	dir := mechanics.New(b)
	cold := requests.New(b, dir, c, time.Minute)
	srv := httptest.NewServer(New(cold, dir).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/requests/" + r.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[backend.RawServiceRequest](t, resp)
	require.Equal(t, r.ID, got.ID)
	require.Equal(t, "pending", got.Status)

	// в списке записи нет — снапшот не подменяет Refresh
	resp, err = http.Get(srv.URL + "/requests")
	require.NoError(t, err)
	list := decode[requestListResponse](t, resp)
	require.Equal(t, 0, list.Total)
}

func TestAPI_ErrorMapping(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	resp, err := http.Get(srv.URL + "/requests/ghost")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	r, err := store.Create(ctx, backend.RequestCreateInput{Customer: models.Customer{Name: "A"}})
	require.NoError(t, err)

	// прыжок через шаг — 422
	resp = postJSON(t, fmt.Sprintf("%s/requests/%s/status", srv.URL, r.ID), `{"status":"completed"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	_ = resp.Body.Close()

	// отзыв до завершения — 422
	resp = postJSON(t, fmt.Sprintf("%s/requests/%s/feedback", srv.URL, r.ID), `{"rating":5}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	_ = resp.Body.Close()

	// мутация терминальной — 409
	_, err = store.Cancel(ctx, r.ID, "")
	require.NoError(t, err)
	resp = postJSON(t, fmt.Sprintf("%s/requests/%s/status", srv.URL, r.ID), `{"status":"assigned"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	// битый JSON и пустые обязательные поля — 400
	resp = postJSON(t, srv.URL+"/requests", `{broken`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
	resp = postJSON(t, srv.URL+"/requests", `{"serviceType":"Towing"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
	resp = postJSON(t, fmt.Sprintf("%s/requests/%s/assign", srv.URL, r.ID), `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPI_BulkStatusPartialFailure(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	r1, err := store.Create(ctx, backend.RequestCreateInput{Customer: models.Customer{Name: "A"}})
	require.NoError(t, err)
	r2, err := store.Create(ctx, backend.RequestCreateInput{Customer: models.Customer{Name: "B"}})
	require.NoError(t, err)
	_, err = store.Cancel(ctx, r2.ID, "")
	require.NoError(t, err)

	resp := postJSON(t, srv.URL+"/requests/bulk/status",
		fmt.Sprintf(`{"ids":[%q,%q],"status":"assigned"}`, r1.ID, r2.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[requests.BulkResult](t, resp)
	require.Equal(t, []string{r1.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	require.Equal(t, r2.ID, res.Failed[0].ID)
}

func TestAPI_ListAndStatsFilters(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	for _, name := range []string{"Asha", "Ravi"} {
		_, err := store.Create(ctx, backend.RequestCreateInput{
			Customer:    models.Customer{Name: name},
			ServiceType: "Towing",
		})
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + "/requests?q=asha")
	require.NoError(t, err)
	list := decode[requestListResponse](t, resp)
	require.Equal(t, 1, list.Total)
	require.Equal(t, "Asha", list.Items[0].Customer.Name)

	resp, err = http.Get(srv.URL + "/requests/stats")
	require.NoError(t, err)
	stats := decode[requests.Stats](t, resp)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 2, stats.ByStatus["pending"])
}

func TestAPI_Mechanics(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/mechanics", `{
		"name": "Suresh Yadav",
		"phone": "2222222222",
		"availability": "busy",
		"specializations": ["engine", "tires"]
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[backend.RawMechanic](t, resp)
	require.NotEmpty(t, created.ID)

	resp, err := http.Get(srv.URL + "/mechanics?q=yadav")
	require.NoError(t, err)
	list := decode[mechanicListResponse](t, resp)
	require.Equal(t, 1, list.Total)

	// busy не предлагается к назначению
	resp, err = http.Get(srv.URL + "/mechanics/available")
	require.NoError(t, err)
	avail := decode[[]*backend.RawMechanic](t, resp)
	require.Empty(t, avail)

	resp = postJSON(t, srv.URL+"/mechanics", `{"phone":"123"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/mechanics/"+created.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(srv.URL + "/mechanics/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}
