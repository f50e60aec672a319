package actuator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meshguard/meshguard/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r, err := New(types.RestartSpec{Kind: types.RestartKindExec, Command: []string{"true"}})
	require.NoError(t, err)
	assert.IsType(t, &ExecRestarter{}, r)

	r, err = New(types.RestartSpec{Kind: types.RestartKindHTTP, Endpoint: "http://localhost:9090/restart"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPRestarter{}, r)

	_, err = New(types.RestartSpec{Kind: types.RestartKindExec})
	assert.Error(t, err)
	_, err = New(types.RestartSpec{Kind: types.RestartKindHTTP})
	assert.Error(t, err)
	_, err = New(types.RestartSpec{Kind: "telepathy"})
	assert.Error(t, err)
}

func TestExecRestarter(t *testing.T) {
	spec := types.NodeSpec{ID: "n1"}

	outcome, err := NewExecRestarter([]string{"true"}).
		Restart(context.Background(), spec).Get()
	require.NoError(t, err)
	assert.Equal(t, types.RestartCompleted, outcome)

	outcome, err = NewExecRestarter([]string{"false"}).
		Restart(context.Background(), spec).Get()
	assert.Error(t, err)
	assert.Equal(t, types.RestartFailed, outcome)

	outcome, err = NewExecRestarter([]string{"/nonexistent/binary"}).
		Restart(context.Background(), spec).Get()
	assert.Error(t, err)
	assert.Equal(t, types.RestartFailed, outcome)
}

func TestHTTPRestarter(t *testing.T) {
	spec := types.NodeSpec{ID: "n1"}

	var method string
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(status)
	}))
	defer server.Close()

	r := NewHTTPRestarter(server.URL)

	outcome, err := r.Restart(context.Background(), spec).Get()
	require.NoError(t, err)
	assert.Equal(t, types.RestartCompleted, outcome)
	assert.Equal(t, http.MethodPost, method)

	status = http.StatusInternalServerError
	outcome, err = r.Restart(context.Background(), spec).Get()
	assert.Error(t, err)
	assert.Equal(t, types.RestartFailed, outcome)
}

func TestHTTPRestarterUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	outcome, err := NewHTTPRestarter(url).
		Restart(context.Background(), types.NodeSpec{ID: "n1"}).Get()
	assert.Error(t, err)
	assert.Equal(t, types.RestartFailed, outcome)
}
