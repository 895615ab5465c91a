package main

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zwrong/Calendar-Agent/internal/profile"
	"github.com/zwrong/Calendar-Agent/plugin/ai"
	"github.com/zwrong/Calendar-Agent/plugin/ai/agent"
	"github.com/zwrong/Calendar-Agent/plugin/ai/aitime"
	"github.com/zwrong/Calendar-Agent/plugin/ai/intent"
	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
	"github.com/zwrong/Calendar-Agent/plugin/ai/session"
	"github.com/zwrong/Calendar-Agent/store"
	"github.com/zwrong/Calendar-Agent/store/db"
)

const version = "0.1.0"

// app holds the services shared by every command.
type app struct {
	agent    *agent.CalendarAgent
	sessions session.SessionService
	metrics  *metrics.Service
}

func newApp(ctx context.Context, p *profile.Profile) (*app, error) {
	m := metrics.NewService(prometheus.DefaultRegisterer)

	driver, err := db.NewDriver(p)
	if err != nil {
		return nil, err
	}
	cs := store.New(driver,
		store.WithMetrics(m),
		store.WithDefaultCalendar(p.CalDAVDefaultCalendar),
	)

	var policy aitime.MeridiemPolicy = aitime.LiteralHours{}
	if p.PMThrough > 0 {
		policy = aitime.BusinessHours{PMThrough: p.PMThrough}
	}
	resolver := aitime.NewService(aitime.WithMeridiemPolicy(policy))

	var primary intent.Extractor
	if cfg := ai.NewConfigFromProfile(p); cfg.Enabled {
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid language service config")
		}
		llm, err := ai.NewLLMService(&cfg.LLM)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create language service")
		}
		primary = intent.NewLLMExtractor(llm, m)
	}
	extractor := intent.NewService(primary, intent.NewRuleExtractor(resolver), m)

	sessions, err := newSessionStore(ctx, p)
	if err != nil {
		return nil, err
	}

	slog.Debug("calendar agent ready",
		slog.String("store", p.Store),
		slog.String("sessions", p.SessionStore),
		slog.Bool("llm", primary != nil),
	)
	return &app{
		agent: agent.New(extractor, resolver, cs,
			agent.WithMetrics(m),
			agent.WithLocation(p.Location()),
		),
		sessions: sessions,
		metrics:  m,
	}, nil
}

func newSessionStore(ctx context.Context, p *profile.Profile) (session.SessionService, error) {
	switch p.SessionStore {
	case "redis":
		rs, err := session.NewRedisStore(ctx, session.RedisConfig{
			Address: p.RedisAddr,
			TTL:     session.DefaultTTL,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect session store")
		}
		return rs, nil
	default:
		return session.NewMemoryStore(session.DefaultTTL), nil
	}
}

func (a *app) Close() {
	if closer, ok := a.sessions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close session store", slog.String("error", err.Error()))
		}
	}
}
