package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/inventa/pkg/resource"
)

func TestSSMSource_ListPrimary_Paginates(t *testing.T) {
	calls := 0
	clients := &fakeClients{ec2: &mockEC2Client{
		DescribeInstancesFunc: func(_ context.Context, params *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			calls++
			if params.NextToken == nil {
				return &ec2.DescribeInstancesOutput{
					Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{{
						InstanceId:         aws.String("i-1"),
						InstanceType:       ec2types.InstanceTypeT3Micro,
						State:              &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
						Placement:          &ec2types.Placement{AvailabilityZone: aws.String("us-east-1a")},
						PrivateIpAddress:   aws.String("10.0.0.1"),
						PublicIpAddress:    aws.String("54.1.2.3"),
						IamInstanceProfile: &ec2types.IamInstanceProfile{Arn: aws.String("arn:aws:iam::123456789012:instance-profile/ssm-role")},
						Tags:               []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("web")}},
					}}}},
					NextToken: aws.String("page2"),
				}, nil
			}
			return &ec2.DescribeInstancesOutput{
				Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{{InstanceId: aws.String("i-2")}}}},
			}, nil
		},
	}}

	got, err := SSMSource{Clients: clients}.ListPrimary(context.Background(), testSession, "us-east-1")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, got, 2)
	assert.Equal(t, "i-1", got[0].ID)
	assert.Equal(t, "web", got[0].Name)
	assert.Equal(t, "running", got[0].Status)
	assert.Equal(t, "123456789012", got[0].Account)
	assert.Equal(t, "us-east-1", got[0].Region)
	assert.Equal(t, "t3.micro", got[0].Attr("instance_type"))
	assert.Equal(t, "us-east-1a", got[0].Attr("az"))
	assert.Equal(t, "54.1.2.3", got[0].Attr("public_ip"))
	assert.Equal(t, "ssm-role", got[0].Attr("instance_profile"))

	// Missing optional fields do not panic.
	assert.Equal(t, "i-2", got[1].ID)
	assert.Equal(t, "", got[1].Attr("instance_profile"))
	assert.Equal(t, []string{"us-east-1"}, clients.regions)
}

func TestSSMSource_ListPrimary_Error(t *testing.T) {
	clients := &fakeClients{ec2: &mockEC2Client{
		DescribeInstancesFunc: func(context.Context, *ec2.DescribeInstancesInput, ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return nil, errors.New("UnauthorizedOperation")
		},
	}}

	_, err := SSMSource{Clients: clients}.ListPrimary(context.Background(), testSession, "us-east-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "describe instances")
}

func TestSSMSource_ListSecondary(t *testing.T) {
	pinged := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var filters []ssmtypes.InstanceInformationStringFilter
	clients := &fakeClients{ssm: &mockSSMClient{
		DescribeInstanceInformationFunc: func(_ context.Context, params *ssm.DescribeInstanceInformationInput, _ ...func(*ssm.Options)) (*ssm.DescribeInstanceInformationOutput, error) {
			filters = params.Filters
			return &ssm.DescribeInstanceInformationOutput{
				InstanceInformationList: []ssmtypes.InstanceInformation{{
					InstanceId:       aws.String("i-1"),
					ComputerName:     aws.String("web.internal"),
					ResourceType:     ssmtypes.ResourceTypeEc2Instance,
					PlatformType:     ssmtypes.PlatformTypeLinux,
					PlatformName:     aws.String("Amazon Linux"),
					PlatformVersion:  aws.String("2023"),
					AgentVersion:     aws.String("3.2.0"),
					PingStatus:       ssmtypes.PingStatusConnectionLost,
					IPAddress:        aws.String("10.0.0.1"),
					LastPingDateTime: aws.Time(pinged),
				}},
			}, nil
		},
	}}

	got, err := SSMSource{Clients: clients}.ListSecondary(context.Background(), testSession, "us-east-1")

	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "ResourceType", aws.ToString(filters[0].Key))
	assert.Equal(t, []string{"EC2Instance"}, filters[0].Values)

	require.Len(t, got, 1)
	assert.Equal(t, "i-1", got[0].ForeignKey())
	assert.Equal(t, "ConnectionLost", got[0].Attr("ping_status"))
	assert.Equal(t, "Linux", got[0].Attr("platform_type"))
	assert.Equal(t, pinged, got[0].CreatedAt)
	assert.Equal(t, resource.StatusDegraded, SSMPingStatus(got[0]))
}

func TestSSMPingStatus(t *testing.T) {
	tests := []struct {
		ping string
		want resource.Status
	}{
		{"Online", resource.StatusHealthy},
		{"ConnectionLost", resource.StatusDegraded},
		{"Inactive", resource.StatusDegraded},
		{"", resource.StatusUnknown},
		{"Rebooting", resource.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.ping, func(t *testing.T) {
			assert.Equal(t, tt.want, SSMPingStatus(resource.Resource{Status: tt.ping}))
		})
	}
}
