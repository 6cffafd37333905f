package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/dshills/postgraph/graph"
	"github.com/dshills/postgraph/graph/emit"
	"github.com/dshills/postgraph/graph/model"
	"github.com/dshills/postgraph/graph/model/anthropic"
	"github.com/dshills/postgraph/graph/model/google"
	"github.com/dshills/postgraph/graph/model/openai"
	"github.com/dshills/postgraph/graph/store"
	"github.com/dshills/postgraph/graph/tool"
	"github.com/dshills/postgraph/internal/config"
	"github.com/dshills/postgraph/publish"
	"github.com/dshills/postgraph/session"
	"github.com/dshills/postgraph/workflow"
)

// app is the assembled application.
type app struct {
	service  *session.Service
	history  *emit.BufferedEmitter
	registry *prometheus.Registry
	oauth    *publish.LinkedInOAuth
	closers  []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// buildApp wires the configured collaborators, store and engine. tracer
// may be nil.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, tracer trace.Tracer) (*app, error) {
	a := &app{
		registry: prometheus.NewRegistry(),
		history:  emit.NewBufferedEmitter(cfg.Engine.EventBuffer),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := graph.NewPrometheusMetrics(a.registry)

	chat, err := newChatModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	tavilyOpts := []tool.TavilyOption{
		tool.WithRateLimit(rate.Limit(cfg.Tavily.RateLimit), cfg.Tavily.Burst),
		tool.WithLogger(logger),
	}
	if cfg.Tavily.BaseURL != "" {
		tavilyOpts = append(tavilyOpts, tool.WithBaseURL(cfg.Tavily.BaseURL))
	}
	tavily := tool.NewTavily(cfg.Tavily.APIKey, tavilyOpts...)

	linkedInOpts := []publish.LinkedInOption{publish.WithLinkedInLogger(logger)}
	if cfg.LinkedIn.APIURL != "" {
		linkedInOpts = append(linkedInOpts, publish.WithLinkedInAPI(cfg.LinkedIn.APIURL))
	}
	var twitterOpts []publish.TwitterOption
	if cfg.Twitter.APIURL != "" {
		twitterOpts = append(twitterOpts, publish.WithTwitterAPI(cfg.Twitter.APIURL))
	}
	dispatcher := publish.NewDispatcher(
		publish.WithPublisher(publish.PlatformLinkedIn, publish.NewLinkedIn(linkedInOpts...)),
		publish.WithPublisher(publish.PlatformTwitter, publish.NewTwitter(cfg.Twitter.BearerToken, twitterOpts...)),
		publish.WithRecorder(metrics),
		publish.WithLogger(logger),
	)

	a.oauth = publish.NewLinkedInOAuth(cfg.LinkedIn.ClientID, cfg.LinkedIn.ClientSecret, cfg.LinkedIn.RedirectURI)

	g, err := workflow.BuildGraph(workflow.Deps{
		Model:     chat,
		Tools:     []tool.Tool{tavily},
		Images:    tavily,
		Publisher: dispatcher,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	st, closeStore, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	emitters := []emit.Emitter{a.history, emit.NewLogEmitter(logger)}
	if tracer != nil {
		emitters = append(emitters, emit.NewOTelEmitter(tracer))
	}
	engine, err := graph.New(g, st,
		graph.WithMaxSteps(cfg.Engine.MaxSteps),
		graph.WithEmitter(emit.NewFanout(emitters...)),
		graph.WithMetrics(metrics),
		graph.WithLogger(logger),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.service = session.NewService(engine, session.WithLogger(logger))
	logger.Info("postgraph ready",
		"provider", cfg.Model.Provider,
		"store", cfg.Store.Backend,
		"platforms", dispatcher.Platforms(),
	)
	return a, nil
}

func newChatModel(cfg config.ModelConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewChatModel(cfg.APIKey(), cfg.Name), nil
	case config.ProviderOpenAI:
		return openai.NewChatModel(cfg.APIKey(), cfg.Name), nil
	case config.ProviderGoogle:
		return google.NewChatModel(cfg.APIKey(), cfg.Name), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}

func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store[workflow.State], func() error, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return store.NewMemStore[workflow.State](), nil, nil
	case config.StoreSQLite:
		st, err := store.NewSQLiteStore[workflow.State](cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, st.Close, nil
	case config.StoreMySQL:
		st, err := store.NewMySQLStore[workflow.State](cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql store: %w", err)
		}
		return st, st.Close, nil
	case config.StoreRedis:
		var opts []store.RedisOption
		if cfg.RedisPrefix != "" {
			opts = append(opts, store.WithRedisPrefix(cfg.RedisPrefix))
		}
		if cfg.RedisTTL > 0 {
			opts = append(opts, store.WithRedisTTL(cfg.RedisTTL))
		}
		st := store.NewRedisStore[workflow.State](cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := st.Ping(ctx); err != nil {
			_ = st.Close()
			return nil, nil, fmt.Errorf("connect redis store: %w", err)
		}
		return st, st.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
