// Package accounts deduplicates local profiles down to one profile per
// AWS account.
package accounts

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
)

// Outcome is what happened to one profile during deduplication.
type Outcome string

const (
	Inserted         Outcome = "inserted"
	SkippedDuplicate Outcome = "skipped_duplicate"
	Failed           Outcome = "failed"
)

// Decision records the outcome for one input profile.
type Decision struct {
	Profile   string
	AccountID string
	Outcome   Outcome
	Err       error
}

// Entry is one account bound to the profile that owns it for the run.
type Entry struct {
	AccountID string
	Profile   string
}

// Binding maps account ids to profiles in insertion order.
// It is not modified after construction.
type Binding struct {
	entries []Entry
	index   map[string]int
}

// NewBinding builds a binding from entries. Later entries for an account
// already present are ignored.
func NewBinding(entries ...Entry) *Binding {
	b := &Binding{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if _, ok := b.index[e.AccountID]; ok {
			continue
		}
		b.index[e.AccountID] = len(b.entries)
		b.entries = append(b.entries, e)
	}
	return b
}

// FixedBinding is a single-account binding.
func FixedBinding(accountID, profile string) *Binding {
	return NewBinding(Entry{AccountID: accountID, Profile: profile})
}

// Profile returns the owning profile for an account.
func (b *Binding) Profile(accountID string) (string, bool) {
	i, ok := b.index[accountID]
	if !ok {
		return "", false
	}
	return b.entries[i].Profile, true
}

// Entries returns a copy of the entries in insertion order.
func (b *Binding) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Accounts returns the account ids in insertion order.
func (b *Binding) Accounts() []string {
	out := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.AccountID)
	}
	return out
}

// Len returns the number of bound accounts.
func (b *Binding) Len() int {
	return len(b.entries)
}

// Result is the output of Dedupe.
type Result struct {
	Binding   *Binding
	Decisions []Decision
	Errors    []errsink.Record
}

// Dedupe resolves every profile in order. The first profile seen for an
// account owns it; later ones are skipped without an error record.
func Dedupe(ctx context.Context, resolver credentials.Resolver, profiles []string) Result {
	var (
		entries   []Entry
		seen      = make(map[string]bool)
		decisions = make([]Decision, 0, len(profiles))
		records   []errsink.Record
	)

	for _, profile := range profiles {
		s, err := resolver.Resolve(ctx, profile)
		if err != nil {
			log.Debug().Err(err).Str("profile", profile).Msg("profile resolution failed")
			decisions = append(decisions, Decision{Profile: profile, Outcome: Failed, Err: err})
			records = append(records, errsink.FromError(err))
			continue
		}

		if seen[s.AccountID] {
			log.Debug().Str("profile", profile).Str("account", s.AccountID).Msg("account already bound, skipping profile")
			decisions = append(decisions, Decision{Profile: profile, AccountID: s.AccountID, Outcome: SkippedDuplicate})
			continue
		}

		seen[s.AccountID] = true
		entries = append(entries, Entry{AccountID: s.AccountID, Profile: profile})
		decisions = append(decisions, Decision{Profile: profile, AccountID: s.AccountID, Outcome: Inserted})
	}

	return Result{
		Binding:   NewBinding(entries...),
		Decisions: decisions,
		Errors:    records,
	}
}
