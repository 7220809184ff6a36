package report

import (
	"strconv"
	"time"

	"github.com/yairfalse/inventa/internal/archive"
	"github.com/yairfalse/inventa/pkg/resource"
)

// Column is one output column.
type Column struct {
	Header string
	Value  func(resource.Row) string
}

// Layout is the fixed column order of one report kind.
type Layout struct {
	Name    string
	Columns []Column
}

// Headers returns the column headers in order.
func (l Layout) Headers() []string {
	out := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		out[i] = c.Header
	}
	return out
}

// Values renders one row in column order.
func (l Layout) Values(r resource.Row) []string {
	out := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		out[i] = c.Value(r)
	}
	return out
}

func profile(r resource.Row) string { return r.Profile }
func account(r resource.Row) string { return r.Account }
func region(r resource.Row) string { return r.Region }
func label(r resource.Row) string { return r.Label }
func primaryID(r resource.Row) string { return r.Primary.ID }

func primaryAttr(key string) func(resource.Row) string {
	return func(r resource.Row) string { return r.Primary.Attr(key) }
}

// secondaryAttr is blank for unmatched rows.
func secondaryAttr(key string) func(resource.Row) string {
	return func(r resource.Row) string {
		if r.Secondary == nil {
			return ""
		}
		return r.Secondary.Attr(key)
	}
}

func field(key string) func(resource.Row) string {
	return func(r resource.Row) string { return r.Field(key) }
}

var context3 = []Column{
	{Header: "Profile", Value: profile},
	{Header: "Account", Value: account},
	{Header: "Region", Value: region},
}

func withContext(cols ...Column) []Column {
	return append(append([]Column{}, context3...), cols...)
}

// SSM lists EC2 instances with their SSM agent state.
var SSM = Layout{
	Name: "ssm",
	Columns: withContext(
		Column{Header: "SSM Status", Value: label},
		Column{Header: "SSM Computer Name", Value: secondaryAttr("computer_name")},
		Column{Header: "SSM Resource Type", Value: secondaryAttr("resource_type")},
		Column{Header: "SSM Platform", Value: secondaryAttr("platform_type")},
		Column{Header: "SSM OS Name", Value: secondaryAttr("platform_name")},
		Column{Header: "SSM OS Version", Value: secondaryAttr("platform_version")},
		Column{Header: "SSM Agent", Value: secondaryAttr("agent_version")},
		Column{Header: "SSM Ping", Value: secondaryAttr("ping_status")},
		Column{Header: "SSM IP Address", Value: secondaryAttr("ip_address")},
		Column{Header: "EC2 Priv IP", Value: primaryAttr("private_ip")},
		Column{Header: "EC2 Pub IP", Value: primaryAttr("public_ip")},
		Column{Header: "EC2 Instance Id", Value: primaryID},
		Column{Header: "EC2 Instance Type", Value: primaryAttr("instance_type")},
		Column{Header: "EC2 Avail Zone", Value: primaryAttr("az")},
		Column{Header: "EC2 Instance Profile", Value: primaryAttr("instance_profile")},
	),
}

const monthYear = "January 2006"

func monthOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(monthYear)
}

// StaleVolumes lists unattached volumes and their archived snapshots.
var StaleVolumes = Layout{
	Name: "stale-volumes",
	Columns: withContext(
		Column{Header: "Vol ID", Value: primaryID},
		Column{Header: "Vol Name", Value: func(r resource.Row) string { return r.Primary.Name }},
		Column{Header: "Avail Zone", Value: primaryAttr("az")},
		Column{Header: "Vol Type", Value: primaryAttr("type")},
		Column{Header: "Encrypted", Value: primaryAttr("encrypted")},
		Column{Header: "GB Size", Value: primaryAttr("size_gb")},
		Column{Header: "Created", Value: func(r resource.Row) string { return monthOf(r.Primary.CreatedAt) }},
		Column{Header: "Snaps in Archive", Value: func(r resource.Row) string { return strconv.Itoa(r.Matches) }},
		Column{Header: "Most Recent Snap in Archive", Value: func(r resource.Row) string {
			if r.Secondary == nil {
				return "none"
			}
			return monthOf(r.Secondary.CreatedAt)
		}},
	),
}

// RDS lists DB instances and their maintenance windows in UTC.
var RDS = Layout{
	Name: "rds-windows",
	Columns: withContext(
		Column{Header: "RDS Instance", Value: primaryID},
		Column{Header: "Instance Type", Value: primaryAttr("instance_class")},
		Column{Header: "DB Engine", Value: primaryAttr("engine")},
		Column{Header: "Version", Value: primaryAttr("engine_version")},
		Column{Header: "Status", Value: func(r resource.Row) string { return r.Primary.Status }},
		Column{Header: "Avail Zone", Value: primaryAttr("az")},
		Column{Header: "Minor Ver Upg", Value: primaryAttr("auto_minor_upgrade")},
		Column{Header: "MW UTC Day", Value: primaryAttr("mw_day")},
		Column{Header: "MW UTC Start", Value: primaryAttr("mw_start")},
		Column{Header: "MW UTC End", Value: primaryAttr("mw_end")},
	),
}

// Archive lists the outcome of each requested volume archive.
var Archive = Layout{
	Name: "archive",
	Columns: withContext(
		Column{Header: "Volume Id", Value: primaryID},
		Column{Header: "Volume Name", Value: func(r resource.Row) string { return r.Primary.Name }},
		Column{Header: "Snapshot Id", Value: field(archive.FieldSnapshotID)},
		Column{Header: "Status", Value: label},
		Column{Header: "Notes", Value: field(archive.FieldNotes)},
	),
}

// Profiles lists deduplication decisions. Label holds the outcome.
var Profiles = Layout{
	Name: "profiles",
	Columns: []Column{
		{Header: "Profile", Value: profile},
		{Header: "Account", Value: account},
		{Header: "Outcome", Value: label},
	},
}

// Layouts by report name.
var Layouts = map[string]Layout{
	SSM.Name:          SSM,
	StaleVolumes.Name: StaleVolumes,
	RDS.Name:          RDS,
	Archive.Name:      Archive,
	Profiles.Name:     Profiles,
}
