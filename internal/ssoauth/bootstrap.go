// Package ssoauth turns an AWS SSO login into one local profile per
// account with temporary role credentials.
package ssoauth

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/sso/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/inventa/internal/profiles"
)

// SSOAPI defines the SSO portal operations used by the bootstrapper.
type SSOAPI interface {
	ListAccounts(ctx context.Context, params *sso.ListAccountsInput, optFns ...func(*sso.Options)) (*sso.ListAccountsOutput, error)
	ListAccountRoles(ctx context.Context, params *sso.ListAccountRolesInput, optFns ...func(*sso.Options)) (*sso.ListAccountRolesOutput, error)
	GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error)
}

// NewClient creates an SSO portal client in region.
func NewClient(cfg aws.Config, region string) *sso.Client {
	return sso.NewFromConfig(cfg, func(o *sso.Options) {
		if region != "" {
			o.Region = region
		}
	})
}

// Bootstrapper builds profiles for every account that grants Role.
type Bootstrapper struct {
	Client SSOAPI
	Token  string
	Role   string
	// Region is written into each config profile.
	Region string
}

// Profiles lists accounts and fetches role credentials for each. The first
// account with the role becomes the default profile; the rest are named
// after the account.
func (b *Bootstrapper) Profiles(ctx context.Context) ([]profiles.Profile, error) {
	accounts, err := b.accounts(ctx)
	if err != nil {
		return nil, err
	}

	var out []profiles.Profile
	for _, a := range accounts {
		id := aws.ToString(a.AccountId)
		name := aws.ToString(a.AccountName)

		ok, err := b.hasRole(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Info().Str("account", id).Str("name", name).Str("role", b.Role).Msg("role not assigned, skipping account")
			continue
		}

		creds, err := b.Client.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
			AccessToken: aws.String(b.Token),
			AccountId:   aws.String(id),
			RoleName:    aws.String(b.Role),
		})
		if err != nil {
			return nil, fmt.Errorf("get role credentials for %s: %w", id, err)
		}
		rc := creds.RoleCredentials
		if rc == nil {
			return nil, fmt.Errorf("get role credentials for %s: empty response", id)
		}

		profile := name
		if len(out) == 0 {
			profile = profiles.DefaultName
		}
		log.Debug().Str("account", id).Str("profile", profile).Msg("profile created")

		out = append(out, profiles.Profile{
			Name:            profile,
			Region:          b.Region,
			AccessKeyID:     aws.ToString(rc.AccessKeyId),
			SecretAccessKey: aws.ToString(rc.SecretAccessKey),
			SessionToken:    aws.ToString(rc.SessionToken),
		})
	}
	return out, nil
}

// Run builds the profiles and writes them to paths.
func (b *Bootstrapper) Run(ctx context.Context, paths profiles.Paths) ([]profiles.Profile, error) {
	out, err := b.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	if err := profiles.WriteFiles(paths, out); err != nil {
		return nil, fmt.Errorf("write profiles: %w", err)
	}
	return out, nil
}

func (b *Bootstrapper) accounts(ctx context.Context) ([]types.AccountInfo, error) {
	var accounts []types.AccountInfo
	var nextToken *string
	for {
		out, err := b.Client.ListAccounts(ctx, &sso.ListAccountsInput{
			AccessToken: aws.String(b.Token),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		accounts = append(accounts, out.AccountList...)
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return accounts, nil
}

func (b *Bootstrapper) hasRole(ctx context.Context, accountID string) (bool, error) {
	var nextToken *string
	for {
		out, err := b.Client.ListAccountRoles(ctx, &sso.ListAccountRolesInput{
			AccessToken: aws.String(b.Token),
			AccountId:   aws.String(accountID),
			NextToken:   nextToken,
		})
		if err != nil {
			return false, fmt.Errorf("list roles for %s: %w", accountID, err)
		}
		for _, r := range out.RoleList {
			if aws.ToString(r.RoleName) == b.Role {
				return true, nil
			}
		}
		if out.NextToken == nil {
			return false, nil
		}
		nextToken = out.NextToken
	}
}
