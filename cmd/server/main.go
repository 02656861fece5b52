// Command server runs the consentgate demo: an in-memory telemetry client
// gated by a consent source (in-memory or Redis-backed), with consent
// toggles, gating status, audit trail, and Prometheus metrics over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"consentgate"
	"consentgate/internal/audit"
	"consentgate/internal/metrics"
	"consentgate/internal/platform/config"
	"consentgate/internal/platform/httpserver"
	"consentgate/internal/platform/logger"
	platformredis "consentgate/internal/platform/redis"
	httptransport "consentgate/internal/transport/http"
	"consentgate/purpose"
	"consentgate/source"
	"consentgate/telemetry"
)

// demoMapping mirrors a typical CMP setup: the reporting service itself
// gates functional consent, analytics needs two services, and preferences
// are pinned on.
var demoMapping = purpose.Mapping{
	purpose.Functional:  purpose.ServicesRule("error-reporting"),
	purpose.Analytics:   purpose.ServicesRule("error-reporting", "product-analytics"),
	purpose.Marketing:   purpose.ServicesRule("ad-platform"),
	purpose.Preferences: purpose.FixedRule(true),
}

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Debug)

	if err := run(cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, admin, closeSource, err := buildSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	// A representative pre-gating configuration so reconciliation has
	// something to restore.
	client := telemetry.NewMemoryClient(telemetry.Options{
		Enabled:                  true,
		SampleRate:               1.0,
		MaxBreadcrumbs:           100,
		AttachStacktrace:         true,
		TracesSampleRate:         0.2,
		ReplaysSessionSampleRate: 0.1,
		ReplaysOnErrorSampleRate: 1.0,
		SendDefaultPII:           true,
	})
	client.Scope().SetUser(telemetry.User{ID: "demo-user", Email: "demo@example.com"})
	client.Scope().SetTag("deployment", "demo")
	client.Scope().SetContext("marketing", map[string]any{"campaign": "spring"})

	memStore := audit.NewInMemoryStore()
	sinks, closeSinks, err := buildAuditSinks(ctx, cfg, memStore)
	if err != nil {
		return err
	}
	defer closeSinks()

	publisher := audit.NewPublisher(log, sinks...)
	inbox := make(chan audit.Event, 256)
	worker := audit.NewWorker(publisher, inbox)
	record := func(e audit.Event) {
		select {
		case inbox <- e:
		default:
			log.Warn("audit inbox full, dropping event", "action", string(e.Action))
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	integ, err := consentgate.New(consentgate.Config{
		Mapping:      demoMapping,
		Source:       src,
		Debug:        cfg.Debug,
		ReadyTimeout: cfg.ReadyTimeout,
		Logger:       log,
		Hooks:        buildHooks(m, record),
	})
	if err != nil {
		return err
	}
	defer integ.Close()

	if err := integ.Setup(client); err != nil {
		return err
	}

	handler := httptransport.NewHandler(client, admin, integ, memStore, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("consentgate demo listening", "addr", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildSource picks the Redis-backed source when configured, otherwise an
// in-memory one driven entirely by the demo endpoints.
func buildSource(cfg config.Server, log *slog.Logger) (source.Source, httptransport.ConsentAdmin, func(), error) {
	if cfg.RedisURL == "" {
		mem := source.NewMemory()
		return mem, mem, func() {}, nil
	}
	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	rs, err := source.NewRedis(rdb.Client, log)
	if err != nil {
		rdb.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		rs.Close()
		rdb.Close()
	}
	return rs, rs, cleanup, nil
}

// buildAuditSinks always includes the in-memory store (backing the /audit
// endpoint) and adds Postgres and Kafka sinks when configured.
func buildAuditSinks(ctx context.Context, cfg config.Server, memStore *audit.InMemoryStore) ([]audit.Sink, func(), error) {
	sinks := []audit.Sink{memStore}
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })
		pg := audit.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		sinks = append(sinks, pg)
	}

	if cfg.KafkaBrokers != "" {
		kc, err := kgo.NewClient(
			kgo.SeedBrokers(strings.Split(cfg.KafkaBrokers, ",")...),
			kgo.DefaultProduceTopic(cfg.KafkaTopic),
		)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, kc.Close)
		sink, err := audit.NewKafkaSink(kc, cfg.KafkaTopic)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		sinks = append(sinks, sink)
	}

	return sinks, cleanup, nil
}

// buildHooks bridges integration lifecycle notifications to Prometheus and
// the audit trail. Hooks must stay fast and must not call back into the
// integration.
func buildHooks(m *metrics.Metrics, record func(audit.Event)) consentgate.Hooks {
	return consentgate.Hooks{
		OnAdmit: func(d consentgate.Decision) {
			m.ObserveAdmission(d.String())
			if d == consentgate.DecisionDefer {
				m.QueueDepth.Inc()
			}
		},
		OnStateChange: func(state consentgate.GatingState, snap purpose.Snapshot) {
			m.SetGatingState(int(state))
			record(audit.Event{
				Action:   audit.ActionGateTransition,
				State:    state.String(),
				Snapshot: snap,
			})
		},
		OnReconcile: func(snap purpose.Snapshot) {
			m.Reconciliations.Inc()
			record(audit.Event{Action: audit.ActionReconcile, Snapshot: snap})
		},
		OnQueueFlush: func(n int) {
			m.QueueFlushed.Add(float64(n))
			m.SetQueueDepth(0)
			record(audit.Event{Action: audit.ActionQueueFlush, Count: n})
		},
		OnQueueDiscard: func(n int) {
			m.QueueDiscarded.Add(float64(n))
			m.SetQueueDepth(0)
			record(audit.Event{Action: audit.ActionQueueDiscard, Count: n})
		},
		OnQueueDrop: func() {
			m.QueueDropped.Inc()
			m.QueueDepth.Dec()
		},
		OnReadyWarning: func(waited time.Duration) {
			record(audit.Event{Action: audit.ActionReadyWarning, Detail: waited.String()})
		},
	}
}
