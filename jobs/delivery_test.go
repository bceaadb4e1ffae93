package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-iam/strata/internal/events"
)

func TestDeliverEventPostsToAllEndpoints(t *testing.T) {
	var hits atomic.Int32
	var received events.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	evt := events.RoleGranted("operator", "acct-user", "acct-owner")
	task, err := NewDeliverEventTask(evt)
	require.NoError(t, err)

	d := NewDeliverer([]string{srv.URL, srv.URL}, time.Second, slog.Default())
	require.NoError(t, d.HandleDeliverEvent(context.Background(), task))

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, evt.ID, received.ID)
	assert.Equal(t, events.KindRoleGranted, received.Kind)
}

func TestDeliverEventFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	task, err := NewDeliverEventTask(events.RoleRevoked("operator", "acct-user", "acct-owner"))
	require.NoError(t, err)

	d := NewDeliverer([]string{srv.URL}, time.Second, slog.Default())
	assert.Error(t, d.HandleDeliverEvent(context.Background(), task))
}
