package main

import (
	"github.com/spf13/cobra"

	awsinv "github.com/yairfalse/inventa/internal/inventory/aws"
	"github.com/yairfalse/inventa/internal/reconcile"
	"github.com/yairfalse/inventa/internal/report"
)

var rdsCmd = &cobra.Command{
	Use:   "rds-windows",
	Short: "Report RDS instances and their maintenance windows",
	Long: `List every RDS DB instance with its engine, version and preferred
maintenance window, split into UTC day, start and end columns.`,
	Example: `  inventa rds-windows -a -o table`,
	RunE:    runRDS,
}

func init() {
	rootCmd.AddCommand(rdsCmd)
}

func runRDS(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	r, err := newRun(ctx, cmd, report.RDS.Name)
	if err != nil {
		return err
	}

	return r.correlate(ctx, report.RDS, awsinv.RDSSource{Clients: r.clients}, reconcile.Passthrough{})
}
