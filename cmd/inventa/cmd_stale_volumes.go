package main

import (
	"github.com/spf13/cobra"

	awsinv "github.com/yairfalse/inventa/internal/inventory/aws"
	"github.com/yairfalse/inventa/internal/reconcile"
	"github.com/yairfalse/inventa/internal/report"
	"github.com/yairfalse/inventa/pkg/resource"
)

var staleLabels = reconcile.Labels{
	resource.StatusHealthy:   "ARCHIVED",
	resource.StatusUnmatched: "NOT ARCHIVED",
}

var staleVolumesCmd = &cobra.Command{
	Use:   "stale-volumes",
	Short: "Report unattached EBS volumes and their archived snapshots",
	Long: `List EBS volumes that are not attached to an instance, with the
number of snapshots of each volume in the archive tier and the month of
the newest one. The output can be trimmed and fed to 'inventa archive'.`,
	Example: `  inventa stale-volumes -a -o table
  inventa stale-volumes -r us-east-1 -r eu-west-1 --header=false > volumes.csv`,
	RunE: runStaleVolumes,
}

func init() {
	rootCmd.AddCommand(staleVolumesCmd)
}

func runStaleVolumes(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	r, err := newRun(ctx, cmd, report.StaleVolumes.Name)
	if err != nil {
		return err
	}

	source := awsinv.VolumeSource{Clients: r.clients, AvailableOnly: r.cfg.Archive.Available, ArchivedOnly: true}
	classifier := reconcile.AggregateClassifier{Include: awsinv.Archived, Labels: staleLabels}
	return r.correlate(ctx, report.StaleVolumes, source, classifier)
}
