package resthttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AutoAid/ServiceDesk/internal/auth"
	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/errs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func authedCtx() context.Context {
	return auth.WithToken(context.Background(), "tok-123")
}

func TestClient_ListServiceRequests_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/service-requests", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
  {"id":"sr-1","status":"in-progress","priority":"normal",
   "customer":{"id":"c1","name":"Asha","phone":"111"},
   "mechanic":{"id":"m1","name":"Suresh"}},
  {"id":"sr-2","status":"pending"}
]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	out, err := c.ListServiceRequests(authedCtx())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "in_progress", out[0].Status)
	require.Equal(t, "medium", out[0].Priority)
	require.Equal(t, "m1", out[0].Mechanic.ID)
	require.Nil(t, out[1].Mechanic)
}

func TestClient_AssignMechanic_sendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/service-requests/sr-1/assign", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "m1", body["mechanicId"])

		_ = json.NewEncoder(w).Encode(backend.RawServiceRequest{
			ID: "sr-1", Status: "pending",
			Mechanic: &backend.RawMechanicRef{ID: "m1", Name: "Suresh"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	r, err := c.AssignMechanic(authedCtx(), "sr-1", "m1")
	require.NoError(t, err)
	// назначение не двигает статус
	require.Equal(t, "pending", r.Status)
	require.Equal(t, "m1", r.Mechanic.ID)
}

func TestClient_UpdateRequestStatus_serverMessagePreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"mechanic is busy"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.UpdateRequestStatus(authedCtx(), "sr-1", "assigned")
	require.Error(t, err)
	require.Contains(t, err.Error(), "mechanic is busy")
}

func TestClient_NoToken_failsLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.ListServiceRequests(context.Background())
	require.True(t, errors.Is(err, errs.ErrUnauthenticated))
	require.False(t, called) // до сети не дошли
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	err := c.DeleteServiceRequest(authedCtx(), "sr-x")
	require.True(t, errors.Is(err, errs.ErrNotFound))
}
