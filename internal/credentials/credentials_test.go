package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/inventa/internal/errsink"
)

type mockSTSClient struct {
	GetCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func (m *mockSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.GetCallerIdentityFunc(ctx, params, optFns...)
}

func newTestResolver(accounts map[string]string, errs map[string]error) *STSResolver {
	return &STSResolver{
		load: func(_ context.Context, profile string) (aws.Config, error) {
			if err, ok := errs["load:"+profile]; ok {
				return aws.Config{}, err
			}
			// Smuggle the profile through the region so the mock knows who is calling.
			return aws.Config{Region: profile}, nil
		},
		newSTS: func(cfg aws.Config) STSAPI {
			return &mockSTSClient{
				GetCallerIdentityFunc: func(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
					if err, ok := errs[cfg.Region]; ok {
						return nil, err
					}
					return &sts.GetCallerIdentityOutput{Account: aws.String(accounts[cfg.Region])}, nil
				},
			}
		},
	}
}

func TestSTSResolver_Resolve(t *testing.T) {
	r := newTestResolver(map[string]string{"prod": "111111111111"}, nil)

	s, err := r.Resolve(context.Background(), "prod")

	require.NoError(t, err)
	assert.Equal(t, "prod", s.Profile)
	assert.Equal(t, "111111111111", s.AccountID)
}

func TestSTSResolver_Denied(t *testing.T) {
	r := newTestResolver(nil, map[string]error{
		"snowball": &smithy.GenericAPIError{Code: "InvalidClientTokenId", Message: "invalid token"},
	})

	_, err := r.Resolve(context.Background(), "snowball")

	var authErr *errsink.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "snowball", authErr.Profile)
	assert.Equal(t, errsink.AuthDenied, authErr.Kind)
}

func TestSTSResolver_Transient(t *testing.T) {
	r := newTestResolver(nil, map[string]error{"flaky": errors.New("dial tcp: i/o timeout")})

	_, err := r.Resolve(context.Background(), "flaky")

	var authErr *errsink.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, errsink.AuthTransient, authErr.Kind)
}

func TestSTSResolver_ConfigFailure(t *testing.T) {
	r := newTestResolver(nil, map[string]error{"load:missing": errors.New("profile not found")})

	_, err := r.Resolve(context.Background(), "missing")

	var authErr *errsink.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, errsink.AuthConfig, authErr.Kind)
}

func TestSTSResolver_EmptyAccount(t *testing.T) {
	r := newTestResolver(map[string]string{}, nil)

	_, err := r.Resolve(context.Background(), "weird")

	var authErr *errsink.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, errsink.AuthDenied, authErr.Kind)
}

type countingResolver struct {
	calls int
	err   error
}

func (c *countingResolver) Resolve(_ context.Context, profile string) (*Session, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Session{Profile: profile, AccountID: "222222222222"}, nil
}

func TestCachingResolver_ReusesSession(t *testing.T) {
	inner := &countingResolver{}
	c := NewCachingResolver(inner)

	s1, err := c.Resolve(context.Background(), "dev")
	require.NoError(t, err)
	s2, err := c.Resolve(context.Background(), "dev")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, inner.calls)
}

func TestCachingResolver_DoesNotCacheFailures(t *testing.T) {
	inner := &countingResolver{err: errors.New("nope")}
	c := NewCachingResolver(inner)

	_, err := c.Resolve(context.Background(), "dev")
	require.Error(t, err)
	_, err = c.Resolve(context.Background(), "dev")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}
