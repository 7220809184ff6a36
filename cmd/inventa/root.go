package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/inventa/internal/config"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath      string
	debug           bool
	regions         []string
	profile         string
	allProfiles     string
	discoverRegions string
	header          string
	brokenOnly      string
	format          string
}

var (
	version = "0.1.0"
	opts    options
	rootCmd = &cobra.Command{
		Use:   "inventa",
		Short: "Cross-account AWS inventory reconciliation",
		Long: `Inventa - cross-account AWS inventory reconciliation

Inventa resolves every local AWS profile to the account it belongs to,
visits each account once in every requested region, and joins what it
finds into one report row per resource.

Failures in one account or region never stop the run; they are listed
after the report.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Inventa {{.Version}} - cross-account AWS inventory reconciliation
`)

	bindFlags(rootCmd, &opts)
}

func bindFlags(cmd *cobra.Command, o *options) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "Path to a TOML config file")
	f.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	f.StringSliceVarP(&o.regions, "region", "r", nil, "Regions to visit (repeatable or comma separated, default us-east-1)")
	f.StringVarP(&o.profile, "profile", "p", "", "Local profile to use (default: ambient credentials)")
	f.StringVarP(&o.allProfiles, "all-profiles", "a", "", "Visit every local profile and discover regions (true/false)")
	f.StringVar(&o.discoverRegions, "discover-regions", "", "Discover the enabled regions instead of using --region (true/false)")
	f.StringVar(&o.header, "header", "", "Print a header row (true/false)")
	f.StringVar(&o.brokenOnly, "broken-only", "", "Only show degraded and unmatched rows (true/false)")
	f.StringVarP(&o.format, "output", "o", "", "Output format: csv, table, yaml")

	for _, name := range []string{"all-profiles", "discover-regions", "header", "broken-only"} {
		f.Lookup(name).NoOptDefVal = "true"
	}
}

func setupLogging(_ *cobra.Command, _ []string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if opts.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

// loadConfig reads the config file, if any, and lays the flags over it.
func loadConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if !o.debug {
		level, err := zerolog.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("log: %w", err)
		}
		zerolog.SetGlobalLevel(level)
	}

	flags := cmd.Flags()
	if flags.Changed("region") {
		cfg.AWS.Regions = o.regions
	}
	if flags.Changed("profile") {
		cfg.AWS.Profiles = []string{o.profile}
	}
	if flags.Changed("output") {
		cfg.Report.Format = o.format
	}

	bools := []struct {
		flag string
		val  string
		dst  *bool
	}{
		{"all-profiles", o.allProfiles, &cfg.AWS.AllProfiles},
		{"discover-regions", o.discoverRegions, &cfg.AWS.DiscoverRegions},
		{"header", o.header, &cfg.Report.Header},
		{"broken-only", o.brokenOnly, &cfg.Report.BrokenOnly},
	}
	for _, b := range bools {
		if !flags.Changed(b.flag) {
			continue
		}
		v, err := config.ParseBool(b.val)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", b.flag, err)
		}
		*b.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
