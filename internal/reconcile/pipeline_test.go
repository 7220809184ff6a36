package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/inventa/internal/accounts"
	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
	"github.com/yairfalse/inventa/internal/scope"
	"github.com/yairfalse/inventa/pkg/resource"
)

type listerFunc func(ctx context.Context) ([]string, error)

func (f listerFunc) ListRegions(ctx context.Context) ([]string, error) { return f(ctx) }

func TestPipeline_EndToEnd(t *testing.T) {
	sink := errsink.New()
	resolver := mapResolver{"p1": "A", "p2": "B", "p3": "A"}
	var anchoredOn string
	p := &Pipeline{
		Resolver: resolver,
		Sink:     sink,
		Anchor: func(s *credentials.Session) scope.RegionLister {
			anchoredOn = s.Profile
			return listerFunc(func(context.Context) ([]string, error) { return []string{"us-east-1"}, nil })
		},
	}

	plan, err := p.Prepare(context.Background(), []string{"p1", "p2", "p3"}, scope.Request{Discover: true})
	require.NoError(t, err)

	assert.Equal(t, "p1", anchoredOn)
	assert.Equal(t, []string{"A", "B"}, plan.Binding.Accounts())
	assert.Equal(t, []string{"us-east-1"}, plan.Regions)
	assert.Equal(t, accounts.SkippedDuplicate, plan.Decisions[2].Outcome)
	assert.Zero(t, sink.Len())

	src := &mockSource{
		ListPrimaryFunc: func(_ context.Context, s *credentials.Session, _ string) ([]resource.Resource, error) {
			return []resource.Resource{primary("i-" + s.Profile)}, nil
		},
	}
	e := newEngine(src, sink)
	e.Resolver = resolver
	rows := e.Run(context.Background(), plan.Binding, plan.Regions)

	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.NotEqual(t, "p3", r.Profile)
	}
}

func TestPipeline_FatalScopeBeforeListing(t *testing.T) {
	sink := errsink.New()
	p := &Pipeline{
		Resolver: mapResolver{"p1": "A"},
		Sink:     sink,
		Anchor: func(*credentials.Session) scope.RegionLister {
			return listerFunc(func(context.Context) ([]string, error) { return nil, errors.New("UnauthorizedOperation") })
		},
	}

	plan, err := p.Prepare(context.Background(), []string{"p1"}, scope.Request{Discover: true})

	var scopeErr *errsink.ScopeError
	require.ErrorAs(t, err, &scopeErr)
	assert.Nil(t, plan)
}

func TestPipeline_NoUsableSession(t *testing.T) {
	sink := errsink.New()
	p := &Pipeline{
		Resolver: mapResolver{},
		Sink:     sink,
		Anchor: func(*credentials.Session) scope.RegionLister {
			t.Fatal("anchor must not be built without a session")
			return nil
		},
	}

	_, err := p.Prepare(context.Background(), []string{"bad"}, scope.Request{Discover: true})

	var scopeErr *errsink.ScopeError
	require.ErrorAs(t, err, &scopeErr)
	assert.Equal(t, 1, sink.Len())
}
