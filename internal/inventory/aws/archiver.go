package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/pkg/resource"
)

const tagTimeFormat = "2006-01-02 15:04:05"

// Archiver snapshots volumes and moves the snapshots to the archive tier.
type Archiver struct {
	Clients ClientFactory
	// Wait bounds how long to wait for a snapshot to complete before the
	// tier change. Zero skips waiting.
	Wait time.Duration
	Now  func() time.Time
}

func (a *Archiver) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// SnapshotTags builds the tags put on an archive snapshot of vol.
func SnapshotTags(vol resource.Resource, notes string, at time.Time) []ec2types.Tag {
	name := vol.Name
	if name == "" {
		name = UnnamedVolume
	}
	tag := func(k, v string) ec2types.Tag { return ec2types.Tag{Key: aws.String(k), Value: aws.String(v)} }
	return []ec2types.Tag{
		tag("Name", "archive of "+name+" created "+at.UTC().Format(tagTimeFormat)),
		tag("Volume Name", name),
		tag("Volume Type", vol.Attr("type")),
		tag("Volume AZ", vol.Attr("az")),
		tag("Volume Size", vol.Attr("size_gb")),
		tag("Volume Encrypted", vol.Attr("encrypted")),
		tag("Volume Created", vol.CreatedAt.UTC().Format(tagTimeFormat)),
		tag("Notes", notes),
	}
}

// Snapshot starts a snapshot of vol and returns its id.
func (a *Archiver) Snapshot(ctx context.Context, sess *credentials.Session, region string, vol resource.Resource, notes string) (string, error) {
	output, err := a.Clients.EC2(sess, region).CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId: aws.String(vol.ID),
		TagSpecifications: []ec2types.TagSpecification{
			{ResourceType: ec2types.ResourceTypeSnapshot, Tags: SnapshotTags(vol, notes, a.now())},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	id := aws.ToString(output.SnapshotId)
	log.Info().Str("volume", vol.ID).Str("snapshot", id).Str("region", region).Msg("snapshot started")
	return id, nil
}

// WaitCompleted blocks until the snapshot completes or Wait elapses.
func (a *Archiver) WaitCompleted(ctx context.Context, sess *credentials.Session, region, snapshotID string) error {
	if a.Wait <= 0 {
		return nil
	}
	waiter := ec2.NewSnapshotCompletedWaiter(a.Clients.EC2(sess, region))
	if err := waiter.Wait(ctx, &ec2.DescribeSnapshotsInput{SnapshotIds: []string{snapshotID}}, a.Wait); err != nil {
		return fmt.Errorf("wait for snapshot: %w", err)
	}
	log.Info().Str("snapshot", snapshotID).Msg("snapshot complete")
	return nil
}

// Archive requests the archive storage tier for a snapshot.
func (a *Archiver) Archive(ctx context.Context, sess *credentials.Session, region, snapshotID string) error {
	_, err := a.Clients.EC2(sess, region).ModifySnapshotTier(ctx, &ec2.ModifySnapshotTierInput{
		SnapshotId:  aws.String(snapshotID),
		StorageTier: ec2types.TargetStorageTierArchive,
	})
	if err != nil {
		return fmt.Errorf("modify snapshot tier: %w", err)
	}
	log.Info().Str("snapshot", snapshotID).Msg("archive requested")
	return nil
}
