package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
	"github.com/yairfalse/inventa/pkg/resource"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(_ context.Context, profile string) (*credentials.Session, error) {
	account, ok := m[profile]
	if !ok {
		return nil, &errsink.AuthError{Profile: profile, Kind: errsink.AuthDenied, Err: errors.New("access denied")}
	}
	return &credentials.Session{Profile: profile, AccountID: account}, nil
}

type mockSource struct {
	ListPrimaryFunc   func(ctx context.Context, s *credentials.Session, region string) ([]resource.Resource, error)
	ListSecondaryFunc func(ctx context.Context, s *credentials.Session, region string) ([]resource.Resource, error)

	primaryCalls int
}

func (m *mockSource) ListPrimary(ctx context.Context, s *credentials.Session, region string) ([]resource.Resource, error) {
	m.primaryCalls++
	return m.ListPrimaryFunc(ctx, s, region)
}

func (m *mockSource) ListSecondary(ctx context.Context, s *credentials.Session, region string) ([]resource.Resource, error) {
	if m.ListSecondaryFunc == nil {
		return nil, nil
	}
	return m.ListSecondaryFunc(ctx, s, region)
}

func primary(id string) resource.Resource {
	return resource.Resource{ID: id, Type: "ec2_instance", Attrs: map[string]string{"instance_type": "t3.micro"}}
}

func secondary(fk, status string, created time.Time) resource.Resource {
	return resource.Resource{
		ID:        "sec-" + fk + "-" + status,
		Type:      "ssm_instance",
		Status:    status,
		CreatedAt: created,
		Attrs:     map[string]string{resource.AttrForeignKey: fk, "ping_status": status},
	}
}

func pingStatus(s resource.Resource) resource.Status {
	switch s.Status {
	case "Online":
		return resource.StatusHealthy
	case "ConnectionLost", "Inactive":
		return resource.StatusDegraded
	default:
		return resource.StatusUnknown
	}
}

var healthLabels = Labels{
	resource.StatusHealthy:   "SSM WORKING",
	resource.StatusDegraded:  "SSM BROKEN",
	resource.StatusUnmatched: "SSM BROKEN",
}
