package httpapi_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kairoslabs/agentrt/agent"
	"github.com/kairoslabs/agentrt/agent/mockturn"
	"github.com/kairoslabs/agentrt/events"
	"github.com/kairoslabs/agentrt/httpapi"
	"github.com/kairoslabs/agentrt/registry"
)

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()

	reg := registry.New(func(name string) (*agent.Agent, error) {
		store := events.NewMemoryStore()
		exec := mockturn.New().WithDefault(mockturn.Turn{Response: "ack: " + name})
		return agent.New(name, agent.WithStore(store), agent.WithExecutor(exec), agent.WithDebounceWindow(5*time.Millisecond))
	})

	srv := httpapi.NewServer(reg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { reg.ShutdownAll(context.Background()) })
	return ts, reg
}

// readSSEData reads data lines from an SSE response body until the body
// closes or n data events have been read, whichever comes first.
func readSSEData(t *testing.T, body *http.Response, n int) []string {
	t.Helper()
	defer body.Body.Close()

	var out []string
	scanner := bufio.NewScanner(body.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
			if len(out) >= n {
				return out
			}
		}
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubmit_StreamsLogThenCompletion(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"content": "hello"})
	resp, err := http.Post(ts.URL+"/agent/alice?idle_timeout=2", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := readSSEData(t, resp, 8)
	require.NotEmpty(t, lines)

	var foundCompleted bool
	for _, l := range lines {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &e))
		if e["_tag"] == "AgentTurnCompletedEvent" {
			foundCompleted = true
		}
	}
	require.True(t, foundCompleted, "expected AgentTurnCompletedEvent among streamed events: %v", lines)
}

// TestSubmit_ClosesAtTerminalEventWithoutIdleTimeout guards against the
// stream staying open for the stale-connection grace period (minutes) when
// no idle_timeout is given: spec.md §6 requires the connection to close as
// soon as the submitted turn's terminal event is observed.
func TestSubmit_ClosesAtTerminalEventWithoutIdleTimeout(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"content": "hello"})
	resp, err := http.Post(ts.URL+"/agent/dana", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	done := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close promptly after the terminal event")
	}
}

// TestSubmit_IdleTimeoutIsMilliseconds guards against the unit bug where
// idle_timeout was multiplied by time.Second instead of time.Millisecond:
// a small millisecond value should let the stream close quickly rather than
// waiting on the multi-minute stale-connection guard.
func TestSubmit_IdleTimeoutIsMilliseconds(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"content": "hello"})
	resp, err := http.Post(ts.URL+"/agent/erin?idle_timeout=20", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	done := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close promptly when idle_timeout=20ms had elapsed since the terminal event")
	}
}

func TestSubmit_EmptyContentIsBadRequest(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"content": ""})
	resp, err := http.Post(ts.URL+"/agent/bob", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmit_InvalidJSONIsBadRequest(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/agent/bob", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEvents_UnknownAgentIsNotFound(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/agent/ghost/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestState_ReturnsReducedStateSnapshot(t *testing.T) {
	t.Parallel()
	ts, reg := newTestServer(t)

	_, err := reg.GetOrCreate("carol")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/agent/carol/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.Contains(t, state, "Messages")
}

func TestRateLimit_ExceedingBudgetReturns429(t *testing.T) {
	t.Parallel()

	reg := registry.New(func(name string) (*agent.Agent, error) {
		store := events.NewMemoryStore()
		exec := mockturn.New()
		return agent.New(name, agent.WithStore(store), agent.WithExecutor(exec))
	})
	srv := httpapi.NewServer(reg, httpapi.WithRateLimit(1, 1))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer reg.ShutdownAll(context.Background())

	var sawLimited bool
	for i := 0; i < 10; i++ {
		resp, err := http.Get(ts.URL + "/agent/throttled/state")
		require.NoError(t, err)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			sawLimited = true
			break
		}
	}
	require.True(t, sawLimited, "expected at least one request to be rate-limited")
}
