// Package registry manages the set of live Agents, keyed by name, with
// exactly-once construction per name and coordinated shutdown.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kairoslabs/agentrt/agent"
	"github.com/kairoslabs/agentrt/logger"
)

// ErrAgentNotFound is returned by Get when name has no live agent and the
// caller did not ask for one to be created.
var ErrAgentNotFound = errors.New("registry: agent not found")

// Opener constructs a new Agent for a name not yet in the registry. It
// mirrors server/a2a's Conversation opener: called at most once per name,
// even under concurrent first access (spec section 4.4: "concurrent
// requests for the same agentName must not create duplicate Agents").
type Opener func(name string) (*agent.Agent, error)

// Registry is safe for concurrent use. The zero value is not usable;
// construct with New.
type Registry struct {
	open Opener

	mu     sync.RWMutex
	agents map[string]*agent.Agent

	group singleflight.Group
}

// New creates an empty Registry that constructs agents via open.
func New(open Opener) *Registry {
	return &Registry{
		open:   open,
		agents: make(map[string]*agent.Agent),
	}
}

// GetOrCreate returns the live agent for name, constructing it via Opener
// if this is the first request for that name. Concurrent callers racing on
// the same new name all observe the same Agent and the same construction
// error, if any; singleflight.Group guarantees Opener runs at most once.
func (r *Registry) GetOrCreate(name string) (*agent.Agent, error) {
	r.mu.RLock()
	if a, ok := r.agents[name]; ok {
		r.mu.RUnlock()
		return a, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		r.mu.RLock()
		if a, ok := r.agents[name]; ok {
			r.mu.RUnlock()
			return a, nil
		}
		r.mu.RUnlock()

		a, err := r.open(name)
		if err != nil {
			return nil, fmt.Errorf("registry: open agent %q: %w", name, err)
		}

		r.mu.Lock()
		r.agents[name] = a
		r.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*agent.Agent), nil
}

// Get returns the live agent for name, or ErrAgentNotFound if none exists.
func (r *Registry) Get(name string) (*agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return a, nil
}

// List returns every currently registered agent name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShutdownAgent gracefully ends and removes a single agent's session. It is
// a no-op if name is not registered.
func (r *Registry) ShutdownAgent(name string) {
	r.mu.Lock()
	a, ok := r.agents[name]
	if ok {
		delete(r.agents, name)
	}
	r.mu.Unlock()

	if ok {
		a.EndSession()
	}
}

// ShutdownAll gracefully ends every registered agent's session. Agents are
// ended concurrently since EndSession already blocks on its own agent's
// shutdown, not on the registry.
func (r *Registry) ShutdownAll(_ context.Context) {
	r.mu.Lock()
	agents := r.agents
	r.agents = make(map[string]*agent.Agent)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for name, a := range agents {
		wg.Add(1)
		go func(name string, a *agent.Agent) {
			defer wg.Done()
			a.EndSession()
			logger.Info("agent session ended during registry shutdown", "agent", name)
		}(name, a)
	}
	wg.Wait()
}
