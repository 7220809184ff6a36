package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/pkg/resource"
)

// UnnamedVolume is the name used for volumes without a Name tag.
const UnnamedVolume = "unnamed"

// VolumeSource pairs EBS volumes with the snapshots taken of them.
type VolumeSource struct {
	Clients ClientFactory
	// AvailableOnly lists only volumes that are not attached.
	AvailableOnly bool
	// ArchivedOnly lists only snapshots in the archive tier.
	ArchivedOnly bool
}

// ListPrimary lists EBS volumes in the region.
func (s VolumeSource) ListPrimary(ctx context.Context, sess *credentials.Session, region string) ([]resource.Resource, error) {
	client := s.Clients.EC2(sess, region)

	input := &ec2.DescribeVolumesInput{}
	if s.AvailableOnly {
		input.Filters = []ec2types.Filter{
			{Name: aws.String("status"), Values: []string{string(ec2types.VolumeStateAvailable)}},
		}
	}

	var resources []resource.Resource
	for {
		output, err := client.DescribeVolumes(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe volumes: %w", err)
		}

		for _, vol := range output.Volumes {
			resources = append(resources, convertEBSVolume(sess, region, vol))
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return resources, nil
}

func convertEBSVolume(sess *credentials.Session, region string, vol ec2types.Volume) resource.Resource {
	name := extractNameTag(vol.Tags)
	if name == "" {
		name = UnnamedVolume
	}
	r := newResource(sess, region, aws.ToString(vol.VolumeId), "ebs_volume", string(vol.State), name)
	for _, tag := range vol.Tags {
		r.Labels[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	if vol.CreateTime != nil {
		r.CreatedAt = *vol.CreateTime
	}
	r.Attrs["name"] = name
	r.Attrs["size_gb"] = strconv.Itoa(int(aws.ToInt32(vol.Size)))
	r.Attrs["type"] = string(vol.VolumeType)
	r.Attrs["az"] = aws.ToString(vol.AvailabilityZone)
	r.Attrs["encrypted"] = strconv.FormatBool(aws.ToBool(vol.Encrypted))
	r.Attrs["attached"] = strconv.FormatBool(len(vol.Attachments) > 0)
	return r
}

// ListSecondary lists snapshots owned by the session's account.
func (s VolumeSource) ListSecondary(ctx context.Context, sess *credentials.Session, region string) ([]resource.Resource, error) {
	client := s.Clients.EC2(sess, region)

	input := &ec2.DescribeSnapshotsInput{OwnerIds: []string{sess.AccountID}}
	if s.ArchivedOnly {
		input.Filters = []ec2types.Filter{
			{Name: aws.String("storage-tier"), Values: []string{string(ec2types.StorageTierArchive)}},
		}
	}

	var resources []resource.Resource
	for {
		output, err := client.DescribeSnapshots(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe snapshots: %w", err)
		}

		for _, snap := range output.Snapshots {
			resources = append(resources, convertSnapshot(sess, region, snap))
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return resources, nil
}

func convertSnapshot(sess *credentials.Session, region string, snap ec2types.Snapshot) resource.Resource {
	r := newResource(sess, region, aws.ToString(snap.SnapshotId), "ebs_snapshot", string(snap.StorageTier), extractNameTag(snap.Tags))
	if snap.StartTime != nil {
		r.CreatedAt = *snap.StartTime
	}
	r.Attrs[resource.AttrForeignKey] = aws.ToString(snap.VolumeId)
	r.Attrs["storage_tier"] = string(snap.StorageTier)
	r.Attrs["state"] = string(snap.State)
	return r
}

// Archived reports whether a snapshot resource is in the archive tier.
func Archived(r resource.Resource) bool {
	return r.Status == string(ec2types.StorageTierArchive)
}

// notFoundCodes mean the volume id does not exist or is not visible.
var notFoundCodes = map[string]bool{
	"InvalidVolume.NotFound":  true,
	"InvalidVolume.Malformed": true,
	"InvalidParameterValue":   true,
}

// LookupVolume describes one volume. It returns nil, nil when the volume
// cannot be found.
func (s VolumeSource) LookupVolume(ctx context.Context, sess *credentials.Session, region, id string) (*resource.Resource, error) {
	output, err := s.Clients.EC2(sess, region).DescribeVolumes(ctx, &ec2.DescribeVolumesInput{VolumeIds: []string{id}})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && notFoundCodes[apiErr.ErrorCode()] {
			return nil, nil
		}
		return nil, fmt.Errorf("describe volume: %w", err)
	}
	if len(output.Volumes) == 0 {
		return nil, nil
	}
	r := convertEBSVolume(sess, region, output.Volumes[0])
	return &r, nil
}
