// Command agentd runs a standalone agent runtime server: a Registry of
// agents backed by a durable event store, exposed over HTTP.
//
// Usage:
//
//	export AGENTD_STORE=jsonl
//	export AGENTD_DATA_DIR=./data
//	go run ./cmd/agentd
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kairoslabs/agentrt/agent"
	"github.com/kairoslabs/agentrt/agent/mockturn"
	"github.com/kairoslabs/agentrt/events"
	"github.com/kairoslabs/agentrt/httpapi"
	"github.com/kairoslabs/agentrt/logger"
	"github.com/kairoslabs/agentrt/metrics"
	"github.com/kairoslabs/agentrt/registry"
)

const shutdownTimeout = 15 * time.Second

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func newStore() (events.Store, error) {
	dataDir := getenv("AGENTD_DATA_DIR", "./data")

	switch getenv("AGENTD_STORE", "memory") {
	case "memory":
		return events.NewMemoryStore(), nil
	case "jsonl":
		return events.NewJSONFileStore(dataDir)
	case "yaml":
		return events.NewYAMLFileStore(dataDir)
	default:
		return nil, fmt.Errorf("unknown AGENTD_STORE: %q (want memory, jsonl, or yaml)", os.Getenv("AGENTD_STORE"))
	}
}

func main() {
	logger.SetVerbose(getenv("AGENTD_LOG_LEVEL", "") == "debug")

	store, err := newStore()
	if err != nil {
		log.Fatalf("agentd: %v", err)
	}

	rec := metrics.New()

	// No LLM provider is wired into this binary: mockturn's scriptable
	// executor stands in as the default TurnExecutor. A deployment with a
	// real provider supplies its own agent.TurnExecutor here instead.
	opener := func(name string) (*agent.Agent, error) {
		return agent.New(name,
			agent.WithStore(store),
			agent.WithExecutor(mockturn.New()),
			agent.WithMetrics(rec),
		)
	}

	reg := registry.New(opener)
	srv := httpapi.NewServer(reg,
		httpapi.WithPort(getenvInt("AGENTD_PORT", 8080)),
		httpapi.WithMetrics(rec),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("agentd: shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("agentd: error during shutdown", "error", err)
		}
	}()

	logger.Info("agentd: listening", "port", getenvInt("AGENTD_PORT", 8080), "store", getenv("AGENTD_STORE", "memory"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("agentd: %v", err)
	}
}
