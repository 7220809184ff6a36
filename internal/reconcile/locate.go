package reconcile

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/inventa/internal/accounts"
	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
	"github.com/yairfalse/inventa/pkg/resource"
)

// Target is one identifier from a work list, with the account and region
// declared to own it.
type Target struct {
	ID      string
	Account string
	Region  string
	Notes   string
}

// Lookup finds one live resource by id. It returns nil, nil when the
// resource does not exist or cannot be seen.
type Lookup func(ctx context.Context, s *credentials.Session, region, id string) (*resource.Resource, error)

// Located is a target matched to its live resource.
type Located struct {
	Target   Target
	Profile  string
	Session  *credentials.Session
	Resource resource.Resource
}

// Locate matches targets against live inventory. Every declared account
// must be bound: targets of unbound accounts are skipped with one record
// per account. Targets outside the region list are skipped with a record.
// Each remaining target is looked up once, in the (account, region) pair
// that owns it; a miss is a not-found record.
func (e *Engine) Locate(ctx context.Context, binding *accounts.Binding, regions []string, targets []Target, lookup Lookup) []Located {
	inScope := make(map[string]bool, len(regions))
	for _, r := range regions {
		inScope[r] = true
	}

	missing := make(map[string]bool)
	pending := make([]Target, 0, len(targets))
	for _, t := range targets {
		owner, ok := binding.Profile(t.Account)
		if !ok {
			if !missing[t.Account] {
				missing[t.Account] = true
				e.Sink.Add(errsink.Record{
					Kind:    errsink.KindPrecondition,
					Account: t.Account,
					Message: "account " + t.Account + " is listed in the work list but has no matching local profile",
				})
			}
			continue
		}
		if !inScope[t.Region] {
			e.Sink.Add(errsink.Record{
				Kind:       errsink.KindPrecondition,
				Profile:    owner,
				Account:    t.Account,
				Region:     t.Region,
				ResourceID: t.ID,
				Message:    "region " + t.Region + " of " + t.ID + " is not in the region list",
			})
			continue
		}
		pending = append(pending, t)
	}

	done := make(map[string]bool, len(pending))
	var out []Located
	for _, entry := range binding.Entries() {
		for _, region := range regions {
			var owned []Target
			for _, t := range pending {
				if t.Account == entry.AccountID && t.Region == region && !done[t.ID] {
					owned = append(owned, t)
				}
			}
			if len(owned) == 0 {
				continue
			}

			session, err := e.Resolver.Resolve(ctx, entry.Profile)
			if err != nil {
				e.Sink.AddError(err)
				continue
			}

			for _, t := range owned {
				done[t.ID] = true
				r, err := lookup(ctx, session, region, t.ID)
				if err != nil {
					e.Sink.AddError(&errsink.ResourceReadError{Op: "describe", Account: t.Account, Region: region, ResourceID: t.ID, Err: err})
					continue
				}
				if r == nil {
					e.Sink.AddError(&errsink.NotFoundError{Account: t.Account, Region: region, ResourceID: t.ID})
					continue
				}
				log.Debug().Str("id", t.ID).Str("account", t.Account).Str("region", region).Msg("located")
				out = append(out, Located{Target: t, Profile: entry.Profile, Session: session, Resource: *r})
			}
		}
	}
	return out
}
