// Command probe sanity-checks a trolley deployment: it reports the resolved
// configuration, verifies the durable tier round-trips, derives a shopping
// session id, and optionally fires one unauthenticated request at the
// configured API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"trolley/internal/identity"
	"trolley/internal/pipeline"
	"trolley/internal/platform/config"
	"trolley/internal/platform/logger"
	"trolley/internal/platform/metrics"
	"trolley/internal/platform/storage"
	"trolley/internal/session"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	path := flag.String("path", "", "optional API path to probe unauthenticated, e.g. /api/offers/frontstore")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Printf("base URL:   %q\n", cfg.BaseURL)
	fmt.Printf("hostname:   %q\n", cfg.Hostname)
	fmt.Printf("cache TTL:  %s\n", cfg.CacheTTL)

	durable, err := durableTier(cfg)
	if err != nil {
		log.Error("durable tier unavailable", "error", err)
		os.Exit(1)
	}

	mx := metrics.New(prometheus.NewRegistry())
	ids := identity.New(durable, log)
	sessions := session.NewManager(durable, ids, nil, mx, log)

	// Round-trip the durable tier through the real accessors.
	ids.SetSelectedStore(ctx, "probe-user", "probe-store")
	if got := ids.SelectedStore(ctx, "probe-user"); got != "probe-store" {
		log.Error("durable tier did not round-trip", "got", got)
		os.Exit(1)
	}
	sid := sessions.GetOrCreate(ctx, "probe-user", "probe-store")
	fmt.Printf("session id: %s\n", sid)
	sessions.Clear(ctx, "probe-user", "probe-store")
	ids.SetSelectedStore(ctx, "probe-user", "")

	if *path == "" {
		fmt.Println("ok (no request probe; pass -path to issue one)")
		return
	}

	var popts []pipeline.Option
	if cfg.BreakerEnabled {
		popts = append(popts, pipeline.WithBreaker())
	}
	p := pipeline.New(cfg.BaseURL, cfg.Hostname, nil, sessions, ids, mx, log, popts...)
	resp, err := p.DoPublic(ctx, *path, pipeline.Options{})
	if err != nil {
		log.Error("probe request failed", "path", *path, "error", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	fmt.Printf("probe %s -> %d\n", *path, resp.StatusCode)
}

func durableTier(cfg config.Client) (storage.KV, error) {
	if cfg.RedisURL != "" {
		kv, err := storage.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return kv, nil
	}
	if cfg.StateFile != "" {
		return storage.NewFile(cfg.StateFile), nil
	}
	return storage.NewMemory(), nil
}
