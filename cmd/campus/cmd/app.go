package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/campus/internal/config"
	"github.com/Togather-Foundation/campus/internal/gateway"
	"github.com/Togather-Foundation/campus/internal/metrics"
	"github.com/Togather-Foundation/campus/internal/session"
	"github.com/Togather-Foundation/campus/internal/storage"
	"github.com/Togather-Foundation/campus/internal/storage/file"
	"github.com/Togather-Foundation/campus/internal/storage/redis"
	"github.com/Togather-Foundation/campus/internal/storage/sqlite"
	"github.com/Togather-Foundation/campus/internal/telemetry"
)

// app carries the per-invocation wiring shared by every command. The
// gateway and session are built lazily so commands that never talk to the
// API (version, stub) do not open a credential store.
type app struct {
	configPath   string
	logLevel     string
	logFormat    string
	apiURL       string
	backend      string
	printMetrics bool

	cfg         config.Config
	logger      zerolog.Logger
	stopTracing func(context.Context) error

	store storage.Store
	gw    *gateway.Client
	sess  *session.Store
	route session.Route

	now    func() time.Time
	closed bool
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	if a.backend != "" {
		cfg.Credentials.Backend = a.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = config.NewLogger(cfg.Logging)
	if a.now == nil {
		a.now = time.Now
	}
	metrics.Init(Version, GitCommit, BuildDate)

	stop, err := telemetry.InitTracing(cmd.Context(), cfg.Tracing, Version)
	if err != nil {
		a.logger.Warn().Err(err).Msg("tracing disabled")
		stop = func(context.Context) error { return nil }
	}
	a.stopTracing = stop
	return nil
}

// session returns the signed-in session store, restoring and re-validating a
// saved credential on first use.
func (a *app) session(ctx context.Context) (*session.Store, error) {
	if a.sess != nil {
		return a.sess, nil
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.gw = gateway.NewClient(a.cfg.API.BaseURL,
		gateway.WithHTTPClient(&http.Client{Transport: telemetry.Transport(http.DefaultTransport)}),
		gateway.WithTimeout(a.cfg.API.Timeout),
		gateway.WithRateLimit(a.cfg.API.RateLimit),
		gateway.WithRetries(a.cfg.API.Retries),
		gateway.WithUserAgent(a.cfg.API.UserAgent),
		gateway.WithObserver(gateway.Observers{
			gateway.NewLogObserver(a.logger),
			metrics.GatewayObserver{},
		}),
	)

	a.sess = session.New(a.gw, storage.NewCredentials(store),
		session.WithNavigator(session.NavigatorFunc(func(to session.Route) {
			a.route = to
			a.logger.Debug().Str("route", string(to)).Msg("navigate")
		})),
		session.WithLogger(a.logger),
	)
	if err := a.sess.Initialize(ctx); err != nil {
		return nil, err
	}
	return a.sess, nil
}

// signedIn is session plus a check that a credential survived Initialize.
func (a *app) signedIn(ctx context.Context) (*session.Store, error) {
	sess, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.IsAuthenticated() {
		return nil, session.ErrNotAuthenticated
	}
	return sess, nil
}

// admin is signedIn plus the admin role check.
func (a *app) admin(ctx context.Context) (*session.Store, error) {
	sess, err := a.signedIn(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	creds := a.cfg.Credentials
	switch creds.Backend {
	case config.BackendFile:
		path := creds.File
		if path == "" {
			path = file.DefaultPath()
		}
		return file.Open(path)
	case config.BackendSQLite:
		return sqlite.Open(ctx, creds.SQLitePath)
	case config.BackendRedis:
		return redis.Connect(ctx, redis.Config{
			Addr:      creds.Redis.Addr,
			Password:  creds.Redis.Password,
			DB:        creds.Redis.DB,
			Namespace: creds.Redis.Namespace,
		})
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown credential backend %q", creds.Backend)
}

// close releases the store, flushes tracing and writes metrics. Only the
// first call does anything.
func (a *app) close(cmd *cobra.Command) error {
	if a.closed {
		return nil
	}
	a.closed = true
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.stopTracing(ctx))
		cancel()
	}
	if a.printMetrics {
		errs = append(errs, writeMetrics(cmd))
	}
	return errors.Join(errs...)
}

func writeMetrics(cmd *cobra.Command) error {
	families, err := metrics.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	out := cmd.ErrOrStderr()
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "campus_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
