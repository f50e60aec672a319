package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/meshguard/meshguard/pkg/events"
	"github.com/meshguard/meshguard/pkg/guardian"
	"github.com/meshguard/meshguard/pkg/log"
	"github.com/meshguard/meshguard/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

func testServer(t *testing.T) (*Server, *guardian.Guardian) {
	t.Helper()
	g, err := guardian.New(guardian.Config{
		MaxFailures:    3,
		MaxRestarts:    2,
		RestartTimeout: time.Second,
		StartActive:    true,
	}, []types.NodeSpec{{ID: "primary"}, {ID: "backup"}}, nil, nil, nil)
	require.NoError(t, err)
	return NewServer(g, nil, "127.0.0.1:0"), g
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rr := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestGetState(t *testing.T) {
	s, g := testServer(t)
	_, err := g.Observe("primary", types.ProbeUnhealthy)
	require.NoError(t, err)

	rr := do(t, s, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var snap types.ClusterSnapshot
	decodeData(t, rr, &snap)
	assert.True(t, snap.Active)
	assert.Equal(t, "primary", snap.LastHealthCheck)
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, types.NodeUnhealthy, snap.Nodes[0].State)
}

func TestGetNodes(t *testing.T) {
	s, _ := testServer(t)

	rr := do(t, s, http.MethodGet, "/v1/nodes", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var nodes []types.NodeSnapshot
	decodeData(t, rr, &nodes)
	require.Len(t, nodes, 2)
	assert.Equal(t, "primary", nodes[0].ID)
	assert.Equal(t, "backup", nodes[1].ID)
}

func TestGetNode(t *testing.T) {
	s, _ := testServer(t)

	rr := do(t, s, http.MethodGet, "/v1/nodes/backup", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var node types.NodeSnapshot
	decodeData(t, rr, &node)
	assert.Equal(t, "backup", node.ID)
	assert.Equal(t, types.NodeHealthy, node.State)

	rr = do(t, s, http.MethodGet, "/v1/nodes/ghost", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSetActive(t *testing.T) {
	s, g := testServer(t)

	rr := do(t, s, http.MethodPost, "/v1/active", `{"active": false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, g.Active())

	rr = do(t, s, http.MethodPost, "/v1/active", `{"active": true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, g.Active())

	rr = do(t, s, http.MethodPost, "/v1/active", `{notjson`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestForceRestart(t *testing.T) {
	s, _ := testServer(t)

	rr := do(t, s, http.MethodPost, "/v1/nodes/primary/restart", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	decodeData(t, rr, &resp)
	assert.NotEmpty(t, resp["token"])

	// The node is now restarting: a second force is refused.
	rr = do(t, s, http.MethodPost, "/v1/nodes/primary/restart", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "already-restarting")

	// Unknown nodes are a 404.
	rr = do(t, s, http.MethodPost, "/v1/nodes/ghost/restart", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestForceRestartBudgetExhausted(t *testing.T) {
	s, g := testServer(t)

	// Spend the budget: force, recover via probe, force again.
	for i := 0; i < 2; i++ {
		rr := do(t, s, http.MethodPost, "/v1/nodes/primary/restart", "")
		require.Equal(t, http.StatusOK, rr.Code)
		_, err := g.Observe("primary", types.ProbeHealthy)
		require.NoError(t, err)
	}

	rr := do(t, s, http.MethodPost, "/v1/nodes/primary/restart", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "budget-exhausted")
}

func TestGetEvents(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	g, err := guardian.New(guardian.Config{
		MaxFailures:    3,
		MaxRestarts:    2,
		RestartTimeout: time.Second,
		StartActive:    true,
	}, []types.NodeSpec{{ID: "primary"}, {ID: "backup"}}, nil, nil, broker)
	require.NoError(t, err)

	s := NewServer(g, broker, "127.0.0.1:0")
	s.sub = broker.Subscribe()
	go s.collectEvents()

	_, err = g.Observe("primary", types.ProbeUnhealthy)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		rr := do(t, s, http.MethodGet, "/v1/events", "")
		var evts []*events.Event
		decodeData(t, rr, &evts)
		return len(evts) == 1 && evts[0].Type == events.EventNodeFailed
	}, 2*time.Second, 10*time.Millisecond)
}
