package main

import (
	"github.com/spf13/cobra"

	awsinv "github.com/yairfalse/inventa/internal/inventory/aws"
	"github.com/yairfalse/inventa/internal/reconcile"
	"github.com/yairfalse/inventa/internal/report"
	"github.com/yairfalse/inventa/pkg/resource"
)

// SSM status wording.
var ssmLabels = reconcile.Labels{
	resource.StatusHealthy:   "SSM WORKING",
	resource.StatusDegraded:  "SSM BROKEN",
	resource.StatusUnmatched: "SSM BROKEN",
	resource.StatusUnknown:   "SSM UNKNOWN",
}

var ssmCmd = &cobra.Command{
	Use:   "ssm",
	Short: "Report EC2 instances and the state of their SSM agent",
	Long: `List every EC2 instance and join it with its Systems Manager
registration. Instances with no registration, or whose agent is inactive
or has lost its connection, are reported as SSM BROKEN.`,
	Example: `  inventa ssm                          # ambient credentials, us-east-1
  inventa ssm -r eu-west-1 -p prod     # one profile, one region
  inventa ssm -a --broken-only         # every profile, every region, only problems`,
	RunE: runSSM,
}

func init() {
	rootCmd.AddCommand(ssmCmd)
}

func runSSM(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	r, err := newRun(ctx, cmd, report.SSM.Name)
	if err != nil {
		return err
	}

	source := awsinv.SSMSource{Clients: r.clients}
	classifier := reconcile.HealthClassifier{StatusOf: awsinv.SSMPingStatus, Labels: ssmLabels}
	return r.correlate(ctx, report.SSM, source, classifier)
}
