// Package aws implements the inventory listings and mutations used by
// inventa reports on top of aws-sdk-go-v2.
package aws

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/pkg/resource"
)

// ClientFactory builds regional service clients for a session.
type ClientFactory interface {
	EC2(s *credentials.Session, region string) EC2API
	SSM(s *credentials.Session, region string) SSMAPI
	RDS(s *credentials.Session, region string) RDSAPI
}

// SDKClients builds real SDK clients from the session config.
type SDKClients struct{}

// EC2 implements ClientFactory.
func (SDKClients) EC2(s *credentials.Session, region string) EC2API {
	return ec2.NewFromConfig(regional(s, region))
}

// SSM implements ClientFactory.
func (SDKClients) SSM(s *credentials.Session, region string) SSMAPI {
	return ssm.NewFromConfig(regional(s, region))
}

// RDS implements ClientFactory.
func (SDKClients) RDS(s *credentials.Session, region string) RDSAPI {
	return rds.NewFromConfig(regional(s, region))
}

func regional(s *credentials.Session, region string) aws.Config {
	cfg := s.Config.Copy()
	if region != "" {
		cfg.Region = region
	}
	return cfg
}

func newResource(s *credentials.Session, region, id, typ, status, name string) resource.Resource {
	return resource.Resource{
		ID:        id,
		Type:      typ,
		Provider:  "aws",
		Region:    region,
		Account:   s.AccountID,
		Name:      name,
		Status:    status,
		Labels:    make(map[string]string),
		Attrs:     make(map[string]string),
		ScannedAt: time.Now(),
	}
}

func extractNameTag(tags []ec2types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
