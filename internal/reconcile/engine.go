// Package reconcile joins primary and secondary inventory collections
// across accounts and regions and classifies every primary resource.
package reconcile

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yairfalse/inventa/internal/accounts"
	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
	"github.com/yairfalse/inventa/internal/telemetry"
	"github.com/yairfalse/inventa/pkg/resource"
)

// Source lists the two collections joined for one (account, region).
// A *errsink.PartialError may be returned alongside usable items; any
// other error discards the listing. Sources with no secondary collection
// return nil, nil from ListSecondary.
type Source interface {
	ListPrimary(ctx context.Context, s *credentials.Session, region string) ([]resource.Resource, error)
	ListSecondary(ctx context.Context, s *credentials.Session, region string) ([]resource.Resource, error)
}

// Filter decides whether a classified row is shown.
type Filter func(resource.Row) bool

// BrokenOnly keeps degraded and unmatched rows.
func BrokenOnly(r resource.Row) bool {
	return r.Status.Broken()
}

// Visible applies f to rows. A nil filter keeps everything.
func Visible(rows []resource.Row, f Filter) []resource.Row {
	if f == nil {
		return rows
	}
	out := make([]resource.Row, 0, len(rows))
	for _, r := range rows {
		if f(r) {
			out = append(out, r)
		}
	}
	return out
}

var errMissingID = errors.New("listed without an id")

// describe names a resource that has no id.
func describe(r resource.Resource) string {
	kind := r.Type
	if kind == "" {
		kind = "resource"
	}
	if r.Name != "" {
		return kind + " " + strconv.Quote(r.Name)
	}
	return kind
}

// Engine runs one report across a binding and a region list.
type Engine struct {
	Report     string
	Resolver   credentials.Resolver
	Source     Source
	Classifier Classifier
	Sink       *errsink.Sink
	Telemetry  telemetry.Recorder
}

func (e *Engine) recorder() telemetry.Recorder {
	if e.Telemetry == nil {
		return telemetry.Nop{}
	}
	return e.Telemetry
}

// Run visits every (account, region) pair in binding order then region
// order and returns one row per primary resource, unfiltered. A primary
// listed without an id cannot be keyed or reported, so it yields a read
// record instead of a row. Failures are recorded in the sink and never
// stop the run.
func (e *Engine) Run(ctx context.Context, binding *accounts.Binding, regions []string) []resource.Row {
	var rows []resource.Row
	for _, entry := range binding.Entries() {
		for _, region := range regions {
			rows = append(rows, e.visit(ctx, entry, region)...)
		}
	}
	return rows
}

func (e *Engine) visit(ctx context.Context, entry accounts.Entry, region string) []resource.Row {
	rec := e.recorder()
	ctx, span := rec.StartSpan(ctx, "reconcile.visit",
		attribute.String("report", e.Report),
		attribute.String("account", entry.AccountID),
		attribute.String("region", region),
	)
	defer span.End()
	start := time.Now()

	logger := log.With().Str("profile", entry.Profile).Str("account", entry.AccountID).Str("region", region).Logger()
	logger.Info().Msg("visiting")

	session, err := e.Resolver.Resolve(ctx, entry.Profile)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.Sink.AddError(err)
		return nil
	}

	primaries, err := e.Source.ListPrimary(ctx, session, region)
	if !e.keep(err, "list primary resources", entry.AccountID, region) {
		span.SetStatus(codes.Error, err.Error())
		return nil
	}

	secondaries, err := e.Source.ListSecondary(ctx, session, region)
	if !e.keep(err, "list secondary resources", entry.AccountID, region) {
		span.SetStatus(codes.Error, err.Error())
		return nil
	}

	byKey := make(map[string][]resource.Resource)
	for _, s := range secondaries {
		fk := s.ForeignKey()
		if fk == "" {
			continue
		}
		byKey[fk] = append(byKey[fk], s)
	}

	rows := make([]resource.Row, 0, len(primaries))
	for _, p := range primaries {
		if p.ID == "" {
			e.Sink.AddError(&errsink.ResourceReadError{
				Op:      "read " + describe(p),
				Account: entry.AccountID,
				Region:  region,
				Err:     errMissingID,
			})
			continue
		}
		rows = append(rows, e.correlate(entry, region, p, byKey[p.ID]))
	}

	logger.Debug().Int("primaries", len(primaries)).Int("secondaries", len(secondaries)).Msg("visit complete")
	rec.RecordVisit(ctx, e.Report, entry.AccountID, region, time.Since(start), len(rows))
	return rows
}

// keep sinks err and reports whether the listing it came with is usable.
func (e *Engine) keep(err error, op, account, region string) bool {
	if err == nil {
		return true
	}
	var partial *errsink.PartialError
	if errors.As(err, &partial) {
		e.Sink.AddError(partial)
		return true
	}
	e.Sink.AddError(&errsink.ResourceReadError{Op: op, Account: account, Region: region, Err: err})
	return false
}

func (e *Engine) correlate(entry accounts.Entry, region string, primary resource.Resource, matches []resource.Resource) resource.Row {
	row := e.Classifier.Classify(primary, matches)
	row.Profile = entry.Profile
	row.Account = entry.AccountID
	row.Region = region
	row.Primary = primary

	fields := make(map[string]string, len(primary.Attrs)+len(row.Fields))
	if row.Secondary != nil {
		for k, v := range row.Secondary.Attrs {
			fields[k] = v
		}
	}
	for k, v := range primary.Attrs {
		fields[k] = v
	}
	for k, v := range row.Fields {
		fields[k] = v
	}
	row.Fields = fields
	return row
}
