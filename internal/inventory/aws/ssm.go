package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/pkg/resource"
)

// SSMSource pairs EC2 instances with their SSM agent registrations.
type SSMSource struct {
	Clients ClientFactory
}

// ListPrimary lists every EC2 instance in the region.
func (s SSMSource) ListPrimary(ctx context.Context, sess *credentials.Session, region string) ([]resource.Resource, error) {
	client := s.Clients.EC2(sess, region)

	var resources []resource.Resource
	var nextToken *string

	for {
		output, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				resources = append(resources, convertEC2Instance(sess, region, instance))
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return resources, nil
}

func convertEC2Instance(sess *credentials.Session, region string, instance ec2types.Instance) resource.Resource {
	var state string
	if instance.State != nil {
		state = string(instance.State.Name)
	}
	r := newResource(sess, region, aws.ToString(instance.InstanceId), "ec2_instance", state, extractNameTag(instance.Tags))
	for _, tag := range instance.Tags {
		r.Labels[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	if instance.LaunchTime != nil {
		r.CreatedAt = *instance.LaunchTime
	}
	r.Attrs["instance_type"] = string(instance.InstanceType)
	if instance.Placement != nil {
		r.Attrs["az"] = aws.ToString(instance.Placement.AvailabilityZone)
	}
	r.Attrs["private_ip"] = aws.ToString(instance.PrivateIpAddress)
	r.Attrs["public_ip"] = aws.ToString(instance.PublicIpAddress)
	if instance.IamInstanceProfile != nil {
		r.Attrs["instance_profile"] = instanceProfileName(aws.ToString(instance.IamInstanceProfile.Arn))
	}
	return r
}

// instanceProfileName returns the name part of an instance profile ARN.
func instanceProfileName(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// ListSecondary lists SSM registrations of EC2 instances in the region.
func (s SSMSource) ListSecondary(ctx context.Context, sess *credentials.Session, region string) ([]resource.Resource, error) {
	client := s.Clients.SSM(sess, region)

	var resources []resource.Resource
	var nextToken *string

	for {
		output, err := client.DescribeInstanceInformation(ctx, &ssm.DescribeInstanceInformationInput{
			Filters: []ssmtypes.InstanceInformationStringFilter{
				{Key: aws.String("ResourceType"), Values: []string{"EC2Instance"}},
			},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("describe instance information: %w", err)
		}

		for _, info := range output.InstanceInformationList {
			resources = append(resources, convertInstanceInformation(sess, region, info))
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return resources, nil
}

func convertInstanceInformation(sess *credentials.Session, region string, info ssmtypes.InstanceInformation) resource.Resource {
	id := aws.ToString(info.InstanceId)
	r := newResource(sess, region, id, "ssm_instance", string(info.PingStatus), aws.ToString(info.ComputerName))
	if info.LastPingDateTime != nil {
		r.CreatedAt = *info.LastPingDateTime
	}
	r.Attrs[resource.AttrForeignKey] = id
	r.Attrs["computer_name"] = aws.ToString(info.ComputerName)
	r.Attrs["resource_type"] = string(info.ResourceType)
	r.Attrs["platform_type"] = string(info.PlatformType)
	r.Attrs["platform_name"] = aws.ToString(info.PlatformName)
	r.Attrs["platform_version"] = aws.ToString(info.PlatformVersion)
	r.Attrs["agent_version"] = aws.ToString(info.AgentVersion)
	r.Attrs["ping_status"] = string(info.PingStatus)
	r.Attrs["ip_address"] = aws.ToString(info.IPAddress)
	return r
}

// SSMPingStatus classifies an SSM registration by its ping status.
func SSMPingStatus(r resource.Resource) resource.Status {
	switch ssmtypes.PingStatus(r.Status) {
	case ssmtypes.PingStatusOnline:
		return resource.StatusHealthy
	case ssmtypes.PingStatusConnectionLost, ssmtypes.PingStatusInactive:
		return resource.StatusDegraded
	default:
		return resource.StatusUnknown
	}
}
