// Package errsink collects non-fatal errors during a run so they can be
// reported once at the end instead of aborting the run.
package errsink

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Kind classifies a Record.
type Kind string

const (
	KindAuth         Kind = "auth"
	KindNotFound     Kind = "not_found"
	KindResourceRead Kind = "resource_read"
	KindPrecondition Kind = "precondition"
)

// Record is one non-fatal error.
type Record struct {
	Kind       Kind   `json:"kind" yaml:"kind"`
	Profile    string `json:"profile,omitempty" yaml:"profile,omitempty"`
	Account    string `json:"account,omitempty" yaml:"account,omitempty"`
	Region     string `json:"region,omitempty" yaml:"region,omitempty"`
	ResourceID string `json:"resource_id,omitempty" yaml:"resource_id,omitempty"`
	Message    string `json:"message" yaml:"message"`
}

func (r Record) String() string {
	var ctx []string
	if r.Profile != "" {
		ctx = append(ctx, "profile="+r.Profile)
	}
	if r.Account != "" {
		ctx = append(ctx, "account="+r.Account)
	}
	if r.Region != "" {
		ctx = append(ctx, "region="+r.Region)
	}
	if r.ResourceID != "" {
		ctx = append(ctx, "resource="+r.ResourceID)
	}
	if len(ctx) == 0 {
		return fmt.Sprintf("ERROR [%s] %s", r.Kind, r.Message)
	}
	return fmt.Sprintf("ERROR [%s] %s (%s)", r.Kind, r.Message, strings.Join(ctx, " "))
}

// Sink is an append-only list of records. Records are never deduplicated.
type Sink struct {
	mu      sync.Mutex
	records []Record
}

// New creates an empty sink.
func New() *Sink {
	return &Sink{}
}

// Add appends a record.
func (s *Sink) Add(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

// AddError converts err and appends it. A PartialError, wrapped or not,
// contributes one record per failure.
func (s *Sink) AddError(err error) {
	if err == nil {
		return
	}
	var p *PartialError
	if errors.As(err, &p) {
		for _, f := range p.Failures {
			s.Add(FromError(f))
		}
		return
	}
	s.Add(FromError(err))
}

// Addf appends a record built from a format string.
func (s *Sink) Addf(kind Kind, format string, args ...any) {
	s.Add(Record{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Len returns the number of records held.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of the records in insertion order.
func (s *Sink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Drain returns all records in insertion order and clears the sink.
func (s *Sink) Drain() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.records
	s.records = nil
	return out
}
