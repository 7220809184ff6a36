package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/inventa/internal/config"
	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
	awsinv "github.com/yairfalse/inventa/internal/inventory/aws"
	"github.com/yairfalse/inventa/internal/profiles"
	"github.com/yairfalse/inventa/internal/reconcile"
	"github.com/yairfalse/inventa/internal/report"
	"github.com/yairfalse/inventa/internal/scope"
	"github.com/yairfalse/inventa/internal/telemetry"
	"github.com/yairfalse/inventa/pkg/resource"
)

// run is the state shared by one command invocation.
type run struct {
	name      string
	cfg       *config.Config
	sink      *errsink.Sink
	resolver  credentials.Resolver
	clients   awsinv.ClientFactory
	telemetry telemetry.Recorder
	shutdown  func(context.Context) error

	stdout io.Writer
	stderr io.Writer
}

func newRun(ctx context.Context, cmd *cobra.Command, name string) (*run, error) {
	cfg, err := loadConfig(cmd, &opts)
	if err != nil {
		return nil, err
	}

	r := &run{
		name:      name,
		cfg:       cfg,
		sink:      errsink.New(),
		resolver:  credentials.NewCachingResolver(credentials.NewSTSResolver()),
		clients:   awsinv.SDKClients{},
		telemetry: telemetry.Nop{},
		shutdown:  func(context.Context) error { return nil },
		stdout:    cmd.OutOrStdout(),
		stderr:    cmd.ErrOrStderr(),
	}

	if cfg.OTEL.Endpoint != "" || cfg.OTEL.MetricsTextfile != "" {
		p, err := telemetry.NewProvider(ctx, cfg.OTEL)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled")
		} else {
			r.telemetry = p
			r.shutdown = p.Shutdown
		}
	}
	return r, nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

// profiles returns the profile names the run starts from: every local
// profile when all profiles are requested, the configured ones otherwise,
// and ambient credentials when none are configured.
func (r *run) profiles() ([]string, error) {
	if r.cfg.AWS.AllProfiles {
		paths, err := profiles.DefaultPaths()
		if err != nil {
			return nil, err
		}
		names, err := profiles.Discover(paths)
		if err != nil {
			return nil, fmt.Errorf("discover profiles: %w", err)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no local profiles found in %s or %s", paths.Config, paths.Credentials)
		}
		return names, nil
	}
	if len(r.cfg.AWS.Profiles) > 0 {
		return r.cfg.AWS.Profiles, nil
	}
	return []string{credentials.DefaultProfile}, nil
}

// regionRequest discovers regions when asked to, or when visiting all
// profiles without explicit regions.
func (r *run) regionRequest() scope.Request {
	explicit := r.cfg.AWS.Regions
	discover := r.cfg.AWS.DiscoverRegions || (r.cfg.AWS.AllProfiles && len(explicit) == 0)
	if !discover && len(explicit) == 0 {
		explicit = []string{config.DefaultRegion}
	}
	return scope.Request{Explicit: explicit, Discover: discover}
}

func (r *run) pipeline() *reconcile.Pipeline {
	return &reconcile.Pipeline{
		Resolver:  r.resolver,
		Sink:      r.sink,
		Telemetry: r.telemetry,
		Anchor: func(s *credentials.Session) scope.RegionLister {
			return awsinv.NewRegionLister(r.clients, s)
		},
	}
}

func (r *run) engine(source reconcile.Source, classifier reconcile.Classifier) *reconcile.Engine {
	return &reconcile.Engine{
		Report:     r.name,
		Resolver:   r.resolver,
		Source:     source,
		Classifier: classifier,
		Sink:       r.sink,
		Telemetry:  r.telemetry,
	}
}

// correlate runs a correlate-mode report end to end.
func (r *run) correlate(ctx context.Context, layout report.Layout, source reconcile.Source, classifier reconcile.Classifier) error {
	names, err := r.profiles()
	if err != nil {
		return r.finish(ctx, err)
	}
	plan, err := r.pipeline().Prepare(ctx, names, r.regionRequest())
	if err != nil {
		return r.finish(ctx, err)
	}
	log.Info().Str("report", r.name).Strs("accounts", plan.Binding.Accounts()).Strs("regions", plan.Regions).Msg("starting run")

	rows := r.engine(source, classifier).Run(ctx, plan.Binding, plan.Regions)
	if err := r.emit(layout, rows); err != nil {
		return r.finish(ctx, err)
	}
	return r.finish(ctx, nil)
}

func (r *run) emit(layout report.Layout, rows []resource.Row) error {
	var filter reconcile.Filter
	if r.cfg.Report.BrokenOnly {
		filter = reconcile.BrokenOnly
	}
	visible := reconcile.Visible(rows, filter)

	e, err := report.New(r.cfg.Report.Format, r.stdout, layout, r.cfg.Report.Header)
	if err != nil {
		return err
	}
	if err := e.Emit(visible); err != nil {
		return fmt.Errorf("emit report: %w", err)
	}
	log.Debug().Int("rows", len(rows)).Int("shown", len(visible)).Msg("report written")
	return nil
}

// finish writes the error block, records error counts and flushes
// telemetry. Sink records never make the run fail; fatal is returned as is.
func (r *run) finish(ctx context.Context, fatal error) error {
	records := r.sink.Drain()

	counts := make(map[errsink.Kind]int)
	for _, rec := range records {
		counts[rec.Kind]++
	}
	for kind, n := range counts {
		r.telemetry.RecordErrors(ctx, r.name, string(kind), n)
	}

	if err := report.WriteErrors(r.stderr, records); err != nil {
		log.Error().Err(err).Msg("write error report")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown")
	}

	return fatal
}
