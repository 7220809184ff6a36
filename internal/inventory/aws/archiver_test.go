package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/inventa/pkg/resource"
)

func testVolume() resource.Resource {
	return resource.Resource{
		ID:        "vol-1",
		Name:      "old-db",
		CreatedAt: time.Date(2020, 2, 3, 4, 5, 6, 0, time.UTC),
		Attrs:     map[string]string{"type": "gp2", "az": "us-east-1a", "size_gb": "50", "encrypted": "false"},
	}
}

func TestSnapshotTags(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	tags := SnapshotTags(testVolume(), "from the old database", at)

	got := make(map[string]string, len(tags))
	for _, tag := range tags {
		got[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	assert.Equal(t, map[string]string{
		"Name":             "archive of old-db created 2024-06-01 10:00:00",
		"Volume Name":      "old-db",
		"Volume Type":      "gp2",
		"Volume AZ":        "us-east-1a",
		"Volume Size":      "50",
		"Volume Encrypted": "false",
		"Volume Created":   "2020-02-03 04:05:06",
		"Notes":            "from the old database",
	}, got)
}

func TestSnapshotTags_Unnamed(t *testing.T) {
	vol := testVolume()
	vol.Name = ""

	tags := SnapshotTags(vol, "", time.Unix(0, 0))

	assert.Equal(t, "Volume Name", aws.ToString(tags[1].Key))
	assert.Equal(t, UnnamedVolume, aws.ToString(tags[1].Value))
}

func TestArchiver_SnapshotAndArchive(t *testing.T) {
	var created *ec2.CreateSnapshotInput
	var tiered *ec2.ModifySnapshotTierInput
	clients := &fakeClients{ec2: &mockEC2Client{
		CreateSnapshotFunc: func(_ context.Context, params *ec2.CreateSnapshotInput, _ ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error) {
			created = params
			return &ec2.CreateSnapshotOutput{SnapshotId: aws.String("snap-9")}, nil
		},
		ModifySnapshotTierFunc: func(_ context.Context, params *ec2.ModifySnapshotTierInput, _ ...func(*ec2.Options)) (*ec2.ModifySnapshotTierOutput, error) {
			tiered = params
			return &ec2.ModifySnapshotTierOutput{}, nil
		},
	}}
	a := &Archiver{Clients: clients, Now: func() time.Time { return time.Unix(0, 0) }}
	ctx := context.Background()

	id, err := a.Snapshot(ctx, testSession, "us-east-1", testVolume(), "note")
	require.NoError(t, err)
	assert.Equal(t, "snap-9", id)
	assert.Equal(t, "vol-1", aws.ToString(created.VolumeId))
	require.Len(t, created.TagSpecifications, 1)
	assert.Equal(t, ec2types.ResourceTypeSnapshot, created.TagSpecifications[0].ResourceType)

	require.NoError(t, a.WaitCompleted(ctx, testSession, "us-east-1", id))

	require.NoError(t, a.Archive(ctx, testSession, "us-east-1", id))
	assert.Equal(t, "snap-9", aws.ToString(tiered.SnapshotId))
	assert.Equal(t, ec2types.TargetStorageTierArchive, tiered.StorageTier)
}

func TestArchiver_WaitCompleted(t *testing.T) {
	clients := &fakeClients{ec2: &mockEC2Client{
		DescribeSnapshotsFunc: func(_ context.Context, params *ec2.DescribeSnapshotsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error) {
			return &ec2.DescribeSnapshotsOutput{Snapshots: []ec2types.Snapshot{{
				SnapshotId: aws.String(params.SnapshotIds[0]),
				State:      ec2types.SnapshotStateCompleted,
			}}}, nil
		},
	}}
	a := &Archiver{Clients: clients, Wait: time.Minute}

	require.NoError(t, a.WaitCompleted(context.Background(), testSession, "us-east-1", "snap-1"))
}

func TestArchiver_Errors(t *testing.T) {
	clients := &fakeClients{ec2: &mockEC2Client{
		CreateSnapshotFunc: func(context.Context, *ec2.CreateSnapshotInput, ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error) {
			return nil, errors.New("IncorrectState")
		},
		ModifySnapshotTierFunc: func(context.Context, *ec2.ModifySnapshotTierInput, ...func(*ec2.Options)) (*ec2.ModifySnapshotTierOutput, error) {
			return nil, errors.New("IncorrectState")
		},
	}}
	a := &Archiver{Clients: clients}

	_, err := a.Snapshot(context.Background(), testSession, "us-east-1", testVolume(), "")
	assert.ErrorContains(t, err, "create snapshot")
	err = a.Archive(context.Background(), testSession, "us-east-1", "snap-1")
	assert.ErrorContains(t, err, "modify snapshot tier")
}

func TestRegionLister(t *testing.T) {
	var input *ec2.DescribeRegionsInput
	clients := &fakeClients{ec2: &mockEC2Client{
		DescribeRegionsFunc: func(_ context.Context, params *ec2.DescribeRegionsInput, _ ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
			input = params
			return &ec2.DescribeRegionsOutput{Regions: []ec2types.Region{
				{RegionName: aws.String("eu-north-1")},
				{RegionName: aws.String("us-east-1")},
			}}, nil
		},
	}}

	got, err := NewRegionLister(clients, testSession).ListRegions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"eu-north-1", "us-east-1"}, got)
	assert.False(t, aws.ToBool(input.AllRegions))
}
