package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pgraft/pgraft/pkg/command"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *store.Store, *command.Pipeline) {
	t.Helper()
	s := store.New("c1", 1)
	require.NoError(t, s.AddNode(&types.Node{ID: 1, Role: types.NodeRolePrimary, Healthy: true}))
	require.NoError(t, s.AddNode(&types.Node{ID: 2, Role: types.NodeRoleStandby, Healthy: true}))

	p := command.New()
	return New(s, p, nil, nil), s, p
}

func TestHandleHealthReturnsQuorum(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cluster/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var env Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	require.Equal(t, "ok", env.Status)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(2), data["healthy_nodes"])
	require.Equal(t, float64(2), data["total_nodes"])
	require.Equal(t, true, data["quorum"])
}

func TestHandleHealthRejectsNonGet(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cluster/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleAddNodeEnqueuesCommand(t *testing.T) {
	srv, _, pipeline := newTestServer(t)

	body, err := json.Marshal(addNodeRequest{NodeID: 3, Hostname: "n3", Address: "10.0.0.3", Port: 5432})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cluster/add-node", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	cmd, ok := pipeline.Dequeue()
	require.True(t, ok)
	require.Equal(t, types.CommandAddNode, cmd.Type)
	require.Equal(t, uint32(3), cmd.NodeID)
}

func TestHandleAddNodeRejectsMissingFields(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cluster/add-node", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var env Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	require.Equal(t, "error", env.Status)
}

func TestHandleAddNodeRejectsMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cluster/add-node", bytes.NewReader([]byte(`not json`)))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatusReturnsClusterView(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cluster/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var env Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	require.Equal(t, "ok", env.Status)
}
