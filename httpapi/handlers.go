package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kairoslabs/agentrt/events"
	"github.com/kairoslabs/agentrt/logger"
	"github.com/kairoslabs/agentrt/registry"
)

// submitRequest is the client-facing body for POST /agent/{name}. It maps
// onto a UserMessagePayload — the only event kind a remote client is
// permitted to originate (spec section 6: SystemPrompt/SetLlmConfig are
// operator-only).
type submitRequest struct {
	Content           string   `json:"content"`
	Images            []string `json:"images,omitempty"`
	TriggersAgentTurn *bool    `json:"triggersAgentTurn,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleSubmit decodes a submitRequest, opens or reuses the named agent,
// and streams its log back over SSE: the full persisted log first, then
// every subsequent event, closing once the triggered turn's terminal event
// is observed — or, with idle_timeout set, once the agent has stayed idle
// for that many milliseconds afterward.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "agent name is required", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content must not be empty", http.StatusBadRequest)
		return
	}

	a, err := s.reg.GetOrCreate(name)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to open agent: %v", err), http.StatusInternalServerError)
		return
	}

	triggers := true
	if req.TriggersAgentTurn != nil {
		triggers = *req.TriggersAgentTurn
	}
	a.AddEvent(events.UserMessagePayload{Content: req.Content, Images: req.Images}, triggers)

	reqID := uuid.New().String()
	logger.Debug("httpapi: submission accepted", "agent", name, "request_id", reqID)
	s.streamLogThenLive(w, r, a, modeSubmit)
}

// handleEvents subscribes to an existing agent's live stream only — no
// replay of its persisted log.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	a, err := s.reg.Get(name)
	if err != nil {
		if errors.Is(err, registry.ErrAgentNotFound) {
			http.Error(w, "agent not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.streamLogThenLive(w, r, a, modeEvents)
}

type agentLike interface {
	GetLog() []*events.Event
	Subscribe() *events.Subscription
}

// streamMode selects the close condition streamLogThenLive applies, per
// the two distinct endpoint contracts in spec.md §6.
type streamMode int

const (
	// modeSubmit replays the log, then closes once the terminal event for
	// the just-submitted turn is observed (AgentTurnCompleted | Failed |
	// Interrupted) — or, with idle_timeout set, once the agent has stayed
	// idle for that long afterward.
	modeSubmit streamMode = iota

	// modeEvents streams live events only, closing on SessionEndedEvent.
	modeEvents
)

func isTerminalTurnKind(k events.Kind) bool {
	switch k {
	case events.KindAgentTurnCompleted, events.KindAgentTurnFailed, events.KindAgentTurnInterrupted:
		return true
	default:
		return false
	}
}

// streamLogThenLive writes Server-Sent Events: optionally the agent's full
// persisted log first, then live events from a fresh subscription. The
// subscription is opened before the log snapshot is read so no event can
// be missed in the gap between the two (same ordering guarantee the hub
// itself provides to any other subscriber).
func (s *Server) streamLogThenLive(w http.ResponseWriter, r *http.Request, a agentLike, mode streamMode) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sub := a.Subscribe()
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sent := make(map[string]bool)

	if mode == modeSubmit {
		for _, e := range a.GetLog() {
			writeSSE(w, e)
			sent[e.ID] = true
		}
		flusher.Flush()
	}

	// idleAfterTerminal, when non-nil, is armed once the turn's terminal
	// event is seen and disarmed if the agent starts another turn before
	// it fires — spec.md §6: "wait until the agent reports idle for that
	// duration before closing."
	var idleAfterTerminal *time.Timer
	var idleC <-chan time.Time
	var idleDuration time.Duration
	if mode == modeSubmit {
		if v := r.URL.Query().Get("idle_timeout"); v != "" {
			if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
				idleDuration = time.Duration(ms) * time.Millisecond
				idleAfterTerminal = time.NewTimer(idleDuration)
				if !idleAfterTerminal.Stop() {
					<-idleAfterTerminal.C
				}
				idleC = idleAfterTerminal.C
			}
		}
	}
	if idleAfterTerminal != nil {
		defer idleAfterTerminal.Stop()
	}

	// staleGuard closes an abandoned connection that never reaches its
	// documented close condition (e.g. the agent never turns idle again).
	staleGuard := time.NewTimer(defaultIdleTimeout)
	defer staleGuard.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-staleGuard.C:
			return

		case <-idleC:
			return

		case e, ok := <-sub.C():
			if !ok {
				return
			}
			if sent[e.ID] {
				continue
			}
			writeSSE(w, e)
			flusher.Flush()

			if !staleGuard.Stop() {
				<-staleGuard.C
			}
			staleGuard.Reset(defaultIdleTimeout)

			switch mode {
			case modeSubmit:
				switch {
				case e.Kind() == events.KindAgentTurnStarted && idleAfterTerminal != nil:
					if !idleAfterTerminal.Stop() {
						select {
						case <-idleAfterTerminal.C:
						default:
						}
					}
				case isTerminalTurnKind(e.Kind()):
					if idleAfterTerminal == nil {
						return
					}
					idleAfterTerminal.Reset(idleDuration)
				}
			case modeEvents:
				if e.Kind() == events.KindSessionEnded {
					return
				}
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, e *events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

// handleState returns a JSON snapshot of the agent's reduced state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	a, err := s.reg.Get(name)
	if err != nil {
		if errors.Is(err, registry.ErrAgentNotFound) {
			http.Error(w, "agent not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.GetState())
}
