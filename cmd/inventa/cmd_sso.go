package main

import (
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/inventa/internal/config"
	"github.com/yairfalse/inventa/internal/profiles"
	"github.com/yairfalse/inventa/internal/ssoauth"
)

// ssoOptions holds the sso-bootstrap flags.
type ssoOptions struct {
	role      string
	region    string
	overwrite string
}

var ssoOpts ssoOptions

var ssoCmd = &cobra.Command{
	Use:   "sso-bootstrap",
	Short: "Create one local profile per account from an AWS SSO login",
	Long: `Use the newest cached AWS SSO token to list the accounts you can reach,
fetch temporary credentials for the default role in each of them, and
write one profile per account. The first account becomes the default
profile; the others are named after the account.

Log in first with 'aws sso login'. Without --overwrite the config and
credentials files are written to the current directory.`,
	Example: `  inventa sso-bootstrap -d AdministratorAccess --sso-region eu-west-1
  inventa sso-bootstrap --overwrite`,
	RunE: runSSO,
}

func init() {
	rootCmd.AddCommand(ssoCmd)

	bindSSOFlags(ssoCmd, &ssoOpts)
}

func bindSSOFlags(cmd *cobra.Command, o *ssoOptions) {
	cmd.Flags().StringVarP(&o.role, "default-role", "d", "", "Role to fetch credentials for in each account")
	cmd.Flags().StringVar(&o.region, "sso-region", "", "Region the SSO portal lives in")
	cmd.Flags().StringVar(&o.overwrite, "overwrite", "", "Replace ~/.aws/config and ~/.aws/credentials (true/false)")
	cmd.Flags().Lookup("overwrite").NoOptDefVal = "true"
}

// ssoSettings lays the sso-bootstrap flags over the configured settings.
func ssoSettings(cmd *cobra.Command, o *ssoOptions, sso config.SSOConfig) (config.SSOConfig, error) {
	flags := cmd.Flags()
	if flags.Changed("default-role") {
		sso.DefaultRole = o.role
	}
	if flags.Changed("sso-region") {
		sso.Region = o.region
	}
	if flags.Changed("overwrite") {
		v, err := config.ParseBool(o.overwrite)
		if err != nil {
			return sso, fmt.Errorf("--overwrite: %w", err)
		}
		sso.Overwrite = v
	}
	return sso, nil
}

func runSSO(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	r, err := newRun(ctx, cmd, "sso-bootstrap")
	if err != nil {
		return err
	}
	sso, err := ssoSettings(cmd, &ssoOpts, r.cfg.SSO)
	if err != nil {
		return r.finish(ctx, err)
	}

	cacheDir := sso.CacheDir
	if cacheDir == "" {
		if cacheDir, err = ssoauth.DefaultCacheDir(); err != nil {
			return r.finish(ctx, err)
		}
	}
	token, err := ssoauth.LatestAccessToken(cacheDir)
	if err != nil {
		return r.finish(ctx, err)
	}

	paths := profiles.InDir(".")
	if sso.Overwrite {
		if paths, err = profiles.DefaultPaths(); err != nil {
			return r.finish(ctx, err)
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(sso.Region))
	if err != nil {
		return r.finish(ctx, fmt.Errorf("load aws config: %w", err))
	}

	b := &ssoauth.Bootstrapper{
		Client: ssoauth.NewClient(awsCfg, sso.Region),
		Token:  token,
		Role:   sso.DefaultRole,
		Region: sso.ProfileRegion(),
	}
	written, err := b.Run(ctx, paths)
	if err != nil {
		return r.finish(ctx, err)
	}

	for _, p := range written {
		log.Info().Str("profile", p.Name).Msg("profile written")
	}
	log.Info().Int("profiles", len(written)).Str("config", paths.Config).Str("credentials", paths.Credentials).Msg("sso bootstrap complete")
	return r.finish(ctx, nil)
}
