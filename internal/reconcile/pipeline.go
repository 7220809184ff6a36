package reconcile

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/inventa/internal/accounts"
	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
	"github.com/yairfalse/inventa/internal/scope"
	"github.com/yairfalse/inventa/internal/telemetry"
)

// AnchorFunc builds a region lister from an authenticated session.
type AnchorFunc func(s *credentials.Session) scope.RegionLister

// Plan is the resolved scope of a run.
type Plan struct {
	Binding   *accounts.Binding
	Decisions []accounts.Decision
	Regions   []string
}

// Pipeline resolves profiles and regions ahead of any listing.
type Pipeline struct {
	Resolver  credentials.Resolver
	Sink      *errsink.Sink
	Telemetry telemetry.Recorder
	Anchor    AnchorFunc
}

// Prepare deduplicates profiles and expands the region scope. Discovery
// uses the first bound account. The returned error is fatal and is always
// an *errsink.ScopeError.
func (p *Pipeline) Prepare(ctx context.Context, profiles []string, req scope.Request) (*Plan, error) {
	rec := p.Telemetry
	if rec == nil {
		rec = telemetry.Nop{}
	}

	res := accounts.Dedupe(ctx, p.Resolver, profiles)
	for _, r := range res.Errors {
		p.Sink.Add(r)
	}
	for _, d := range res.Decisions {
		rec.RecordProfile(ctx, string(d.Outcome))
	}
	log.Info().Int("profiles", len(profiles)).Int("accounts", res.Binding.Len()).Msg("accounts resolved")

	var anchor scope.RegionLister
	if req.Discover && res.Binding.Len() > 0 && p.Anchor != nil {
		first := res.Binding.Entries()[0]
		s, err := p.Resolver.Resolve(ctx, first.Profile)
		if err == nil {
			anchor = p.Anchor(s)
		} else {
			log.Warn().Err(err).Str("profile", first.Profile).Msg("anchor session unusable")
		}
	}

	regions, err := scope.Regions(ctx, req, anchor)
	if err != nil {
		return nil, err
	}

	return &Plan{Binding: res.Binding, Decisions: res.Decisions, Regions: regions}, nil
}
