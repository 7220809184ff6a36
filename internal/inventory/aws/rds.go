package aws

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
	"github.com/yairfalse/inventa/pkg/resource"
)

// RDSSource lists DB instances and their maintenance windows. It has no
// secondary collection.
type RDSSource struct {
	Clients ClientFactory
}

// ListPrimary lists DB instances in the region. Instances with an
// unreadable maintenance window are still returned; the parse failures
// come back as a *errsink.PartialError.
func (s RDSSource) ListPrimary(ctx context.Context, sess *credentials.Session, region string) ([]resource.Resource, error) {
	client := s.Clients.RDS(sess, region)

	var resources []resource.Resource
	var failures []error
	var marker *string

	for {
		output, err := client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe db instances: %w", err)
		}

		for _, instance := range output.DBInstances {
			r, err := convertRDSInstance(sess, region, instance)
			if err != nil {
				failures = append(failures, &errsink.ResourceReadError{
					Op:         "parse maintenance window of",
					Account:    sess.AccountID,
					Region:     region,
					ResourceID: r.ID,
					Err:        err,
				})
			}
			resources = append(resources, r)
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	return resources, errsink.Partial(failures)
}

// ListSecondary implements reconcile.Source.
func (RDSSource) ListSecondary(context.Context, *credentials.Session, string) ([]resource.Resource, error) {
	return nil, nil
}

func convertRDSInstance(sess *credentials.Session, region string, instance rdstypes.DBInstance) (resource.Resource, error) {
	id := aws.ToString(instance.DBInstanceIdentifier)
	r := newResource(sess, region, id, "rds_instance", aws.ToString(instance.DBInstanceStatus), id)
	for _, tag := range instance.TagList {
		r.Labels[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	if instance.InstanceCreateTime != nil {
		r.CreatedAt = *instance.InstanceCreateTime
	}
	r.Attrs["instance_class"] = aws.ToString(instance.DBInstanceClass)
	r.Attrs["engine"] = aws.ToString(instance.Engine)
	r.Attrs["engine_version"] = aws.ToString(instance.EngineVersion)
	r.Attrs["az"] = aws.ToString(instance.AvailabilityZone)
	r.Attrs["auto_minor_upgrade"] = strconv.FormatBool(aws.ToBool(instance.AutoMinorVersionUpgrade))

	raw := aws.ToString(instance.PreferredMaintenanceWindow)
	r.Attrs["maintenance_window"] = raw
	w, err := ParseMaintenanceWindow(raw)
	if err != nil {
		return r, err
	}
	r.Attrs["mw_day"] = w.StartDay
	r.Attrs["mw_start"] = w.Start
	r.Attrs["mw_end_day"] = w.EndDay
	r.Attrs["mw_end"] = w.End
	return r, nil
}

// MaintenanceWindow is a weekly UTC window.
type MaintenanceWindow struct {
	StartDay string
	Start    string
	EndDay   string
	End      string
}

var weekdays = map[string]bool{"mon": true, "tue": true, "wed": true, "thu": true, "fri": true, "sat": true, "sun": true}

// ParseMaintenanceWindow parses "ddd:hh:mm-ddd:hh:mm", e.g. "sun:05:00-sun:05:30".
func ParseMaintenanceWindow(s string) (MaintenanceWindow, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q: want ddd:hh:mm-ddd:hh:mm", s)
	}
	startDay, start, err := parseWindowEdge(from)
	if err != nil {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q: %w", s, err)
	}
	endDay, end, err := parseWindowEdge(to)
	if err != nil {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q: %w", s, err)
	}
	return MaintenanceWindow{StartDay: startDay, Start: start, EndDay: endDay, End: end}, nil
}

func parseWindowEdge(s string) (string, string, error) {
	day, clock, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", fmt.Errorf("bad edge %q", s)
	}
	day = strings.ToLower(day)
	if !weekdays[day] {
		return "", "", fmt.Errorf("bad weekday %q", day)
	}
	if _, err := time.Parse("15:04", clock); err != nil {
		return "", "", fmt.Errorf("bad time %q", clock)
	}
	return day, clock, nil
}
