package agent

import (
	"time"

	"github.com/kairoslabs/agentrt/events"
)

const (
	// defaultDebounceWindow is the reference turn-trigger debounce interval
	// (spec section 9 design notes: "100ms is a reference value").
	defaultDebounceWindow = 100 * time.Millisecond

	// defaultTurnTimeout bounds a single turn when no explicit deadline is
	// configured. Zero would mean "no deadline"; agents default to a finite
	// one so a stuck executor cannot wedge an agent forever.
	defaultTurnTimeout = 2 * time.Minute

	// defaultAppendQueueSize bounds the background persistence queue. It is
	// generous because a full queue only adds latency to Append visibility,
	// never to the processor, which never waits on it.
	defaultAppendQueueSize = 256
)

// Config holds everything needed to construct an Agent, built up via
// functional Options in the style of server/a2a.Server.
type Config struct {
	Name           string
	ContextName    string
	Store          events.Store
	Executor       TurnExecutor
	DebounceWindow time.Duration
	TurnTimeout    time.Duration
	Metrics        MetricsRecorder
	InitialConfig  *events.SetLlmConfigPayload
}

// Option configures an Agent at construction time.
type Option func(*Config)

// WithContextName overrides the persistence key used for the agent's log.
// Defaults to name + "-v1" per the glossary's "often {agentName}-v1" note.
func WithContextName(contextName string) Option {
	return func(c *Config) { c.ContextName = contextName }
}

// WithStore sets the durable event store.
func WithStore(store events.Store) Option {
	return func(c *Config) { c.Store = store }
}

// WithExecutor sets the TurnExecutor used to run turns.
func WithExecutor(executor TurnExecutor) Option {
	return func(c *Config) { c.Executor = executor }
}

// WithDebounceWindow overrides the turn-trigger debounce interval.
func WithDebounceWindow(d time.Duration) Option {
	return func(c *Config) { c.DebounceWindow = d }
}

// WithTurnTimeout overrides the per-turn deadline. A zero duration disables
// the deadline entirely.
func WithTurnTimeout(d time.Duration) Option {
	return func(c *Config) { c.TurnTimeout = d }
}

// WithMetrics attaches a MetricsRecorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithInitialLLMConfig seeds the agent's LLM configuration at bring-up,
// emitted as a SetLlmConfig event immediately after SessionStarted when the
// context has no prior history (spec section 4.4, Registry.getOrCreate).
func WithInitialLLMConfig(cfg events.SetLlmConfigPayload) Option {
	return func(c *Config) { c.InitialConfig = &cfg }
}

func newConfig(name string, opts []Option) Config {
	cfg := Config{
		Name:           name,
		ContextName:    name + "-v1",
		DebounceWindow: defaultDebounceWindow,
		TurnTimeout:    defaultTurnTimeout,
		Metrics:        NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
