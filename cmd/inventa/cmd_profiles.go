package main

import (
	"github.com/spf13/cobra"

	"github.com/yairfalse/inventa/internal/accounts"
	"github.com/yairfalse/inventa/internal/report"
	"github.com/yairfalse/inventa/pkg/resource"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show which account each local profile resolves to",
	Long: `Resolve the selected profiles in order and show the account each one
belongs to. A profile whose account was already claimed by an earlier
profile is skipped by every other command.`,
	Example: `  inventa profiles -a -o table`,
	RunE:    runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

var outcomeStatus = map[accounts.Outcome]resource.Status{
	accounts.Inserted:         resource.StatusHealthy,
	accounts.SkippedDuplicate: resource.StatusDegraded,
	accounts.Failed:           resource.StatusUnmatched,
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	r, err := newRun(ctx, cmd, report.Profiles.Name)
	if err != nil {
		return err
	}

	names, err := r.profiles()
	if err != nil {
		return r.finish(ctx, err)
	}

	res := accounts.Dedupe(ctx, r.resolver, names)
	for _, rec := range res.Errors {
		r.sink.Add(rec)
	}

	rows := make([]resource.Row, 0, len(res.Decisions))
	for _, d := range res.Decisions {
		r.telemetry.RecordProfile(ctx, string(d.Outcome))
		rows = append(rows, resource.Row{
			Profile: d.Profile,
			Account: d.AccountID,
			Status:  outcomeStatus[d.Outcome],
			Label:   string(d.Outcome),
			Primary: resource.Resource{ID: d.Profile, Type: "profile", Provider: "aws", Account: d.AccountID},
		})
	}

	if err := r.emit(report.Profiles, rows); err != nil {
		return r.finish(ctx, err)
	}
	return r.finish(ctx, nil)
}
