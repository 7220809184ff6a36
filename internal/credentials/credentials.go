// Package credentials turns a local profile name into an authenticated
// session bound to exactly one AWS account.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/yairfalse/inventa/internal/errsink"
)

// DefaultProfile means "use ambient credentials" (environment, default
// profile, instance role) rather than a named profile.
const DefaultProfile = "noprofile"

// fallbackRegion is used for STS when a profile carries no region.
const fallbackRegion = "us-east-1"

// Session is an authenticated handle for one profile.
type Session struct {
	Profile   string
	AccountID string
	Config    aws.Config
}

// Resolver resolves a profile to a session.
type Resolver interface {
	Resolve(ctx context.Context, profile string) (*Session, error)
}

// STSAPI defines the STS operations used by the resolver.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ConfigLoader loads SDK configuration for a profile.
type ConfigLoader func(ctx context.Context, profile string) (aws.Config, error)

// STSResolver resolves profiles via the shared config files and STS.
type STSResolver struct {
	load   ConfigLoader
	newSTS func(aws.Config) STSAPI
}

// NewSTSResolver creates a resolver backed by the SDK's shared config
// loading and sts:GetCallerIdentity.
func NewSTSResolver() *STSResolver {
	return &STSResolver{
		load: LoadConfig,
		newSTS: func(cfg aws.Config) STSAPI {
			return sts.NewFromConfig(cfg)
		},
	}
}

// LoadConfig loads SDK configuration, honoring DefaultProfile.
func LoadConfig(ctx context.Context, profile string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if profile != DefaultProfile && profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	if cfg.Region == "" {
		cfg.Region = fallbackRegion
	}
	return cfg, nil
}

// Resolve loads the profile and looks up the account it belongs to.
// Failures are always *errsink.AuthError.
func (r *STSResolver) Resolve(ctx context.Context, profile string) (*Session, error) {
	cfg, err := r.load(ctx, profile)
	if err != nil {
		return nil, &errsink.AuthError{Profile: profile, Kind: errsink.AuthConfig, Err: fmt.Errorf("load config: %w", err)}
	}

	out, err := r.newSTS(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, &errsink.AuthError{Profile: profile, Kind: classify(err), Err: err}
	}

	account := aws.ToString(out.Account)
	if account == "" {
		return nil, &errsink.AuthError{Profile: profile, Kind: errsink.AuthDenied, Err: errors.New("no account id returned")}
	}

	return &Session{Profile: profile, AccountID: account, Config: cfg}, nil
}

// deniedCodes are STS error codes that mean the credentials themselves are unusable.
var deniedCodes = map[string]bool{
	"AccessDenied":                true,
	"AccessDeniedException":       true,
	"ExpiredToken":                true,
	"ExpiredTokenException":       true,
	"InvalidClientTokenId":        true,
	"SignatureDoesNotMatch":       true,
	"UnrecognizedClientException": true,
	"InvalidIdentityToken":        true,
}

func classify(err error) errsink.AuthKind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && deniedCodes[apiErr.ErrorCode()] {
		return errsink.AuthDenied
	}
	return errsink.AuthTransient
}

// CachingResolver remembers successful sessions per profile so repeated
// region visits reuse one identity lookup. Failures are not cached.
type CachingResolver struct {
	next Resolver

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewCachingResolver wraps next.
func NewCachingResolver(next Resolver) *CachingResolver {
	return &CachingResolver{next: next, sessions: make(map[string]*Session)}
}

// Resolve returns the cached session or resolves and caches a new one.
func (c *CachingResolver) Resolve(ctx context.Context, profile string) (*Session, error) {
	c.mu.Lock()
	if s, ok := c.sessions[profile]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	s, err := c.next.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sessions[profile] = s
	c.mu.Unlock()
	return s, nil
}
