package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/yairfalse/inventa/internal/credentials"
)

// RegionLister lists the regions enabled for the session's account.
type RegionLister struct {
	client EC2API
}

// NewRegionLister uses the session's own region for the call.
func NewRegionLister(clients ClientFactory, sess *credentials.Session) *RegionLister {
	return &RegionLister{client: clients.EC2(sess, "")}
}

// ListRegions returns enabled regions in the order the service reports them.
func (l *RegionLister) ListRegions(ctx context.Context) ([]string, error) {
	output, err := l.client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{AllRegions: aws.Bool(false)})
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}

	regions := make([]string, 0, len(output.Regions))
	for _, r := range output.Regions {
		regions = append(regions, aws.ToString(r.RegionName))
	}
	return regions, nil
}
