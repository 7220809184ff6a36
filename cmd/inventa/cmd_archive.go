package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/inventa/internal/archive"
	awsinv "github.com/yairfalse/inventa/internal/inventory/aws"
	"github.com/yairfalse/inventa/internal/journal"
	"github.com/yairfalse/inventa/internal/report"
	"github.com/yairfalse/inventa/internal/scope"
	"github.com/yairfalse/inventa/internal/worklist"
)

var archiveFile string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Snapshot listed EBS volumes and move the snapshots to the archive tier",
	Long: `Read a work list of volumes, snapshot each one that can be found in
its account and region, and request the archive storage tier for the
snapshot. Every step is appended to a JSON lines journal.

Work list rows are: volume-id,account-id,region[,notes]

Every account in the work list must be reachable through a local profile.
With --all-profiles and no --region or --discover-regions the regions are
taken from the work list; otherwise the region flags apply.`,
	Example: `  inventa archive -f volumes.csv -r eu-west-1
  inventa archive -f volumes.csv -a`,
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVarP(&archiveFile, "file", "f", "", "Work list CSV of volumes to archive")
	_ = archiveCmd.MarkFlagRequired("file")
}

func runArchive(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	r, err := newRun(ctx, cmd, report.Archive.Name)
	if err != nil {
		return err
	}

	list, err := worklist.Load(archiveFile)
	if err != nil {
		return r.finish(ctx, err)
	}
	if len(list.Items) == 0 {
		return r.finish(ctx, errors.New("work list is empty"))
	}

	names, err := r.profiles()
	if err != nil {
		return r.finish(ctx, err)
	}

	plan, err := r.pipeline().Prepare(ctx, names, r.archiveRegions(list))
	if err != nil {
		return r.finish(ctx, err)
	}

	j, err := journal.Open(r.cfg.Journal.Dir)
	if err != nil {
		return r.finish(ctx, err)
	}
	defer func() {
		if err := j.Close(); err != nil {
			log.Error().Err(err).Msg("close journal")
		}
	}()
	log.Info().Str("journal", j.Path()).Int("volumes", len(list.Items)).Strs("listed_accounts", list.Accounts()).Strs("accounts", plan.Binding.Accounts()).Strs("regions", plan.Regions).Msg("starting archive")

	volumes := awsinv.VolumeSource{Clients: r.clients}
	located := r.engine(volumes, nil).Locate(ctx, plan.Binding, plan.Regions, list.Targets(), volumes.LookupVolume)

	runner := &archive.Runner{
		Snapshotter: &awsinv.Archiver{Clients: r.clients, Wait: r.cfg.Archive.Wait},
		Journal:     j,
		Sink:        r.sink,
	}
	rows := runner.Run(ctx, located)

	if err := r.emit(report.Archive, rows); err != nil {
		return r.finish(ctx, err)
	}
	return r.finish(ctx, nil)
}

// archiveRegions takes the regions from the work list when all profiles are
// visited without explicit regions or discovery. Otherwise the usual region
// flags apply.
func (r *run) archiveRegions(list *worklist.List) scope.Request {
	aws := r.cfg.AWS
	if aws.AllProfiles && len(aws.Regions) == 0 && !aws.DiscoverRegions {
		return scope.Request{Explicit: list.Regions()}
	}
	return r.regionRequest()
}
