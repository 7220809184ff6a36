// Package archive snapshots located volumes and moves the snapshots to
// the archive storage tier.
package archive

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/inventa/internal/credentials"
	"github.com/yairfalse/inventa/internal/errsink"
	"github.com/yairfalse/inventa/internal/journal"
	"github.com/yairfalse/inventa/internal/reconcile"
	"github.com/yairfalse/inventa/pkg/resource"
)

// Row labels.
const (
	LabelRequested      = "ARCHIVE REQUESTED"
	LabelSnapshotFailed = "SNAPSHOT FAILED"
	LabelWaitFailed     = "SNAPSHOT INCOMPLETE"
	LabelTierFailed     = "ARCHIVE FAILED"
)

// Row field keys.
const (
	FieldSnapshotID = "snapshot_id"
	FieldNotes      = "notes"
)

// Snapshotter performs the remote calls.
type Snapshotter interface {
	Snapshot(ctx context.Context, sess *credentials.Session, region string, vol resource.Resource, notes string) (string, error)
	WaitCompleted(ctx context.Context, sess *credentials.Session, region, snapshotID string) error
	Archive(ctx context.Context, sess *credentials.Session, region, snapshotID string) error
}

// Journal receives one entry per step.
type Journal interface {
	Append(e journal.Entry) error
	AppendError(e journal.Entry, cause error) error
}

// Runner archives located volumes one at a time.
type Runner struct {
	Snapshotter Snapshotter
	Journal     Journal
	Sink        *errsink.Sink
}

// Run snapshots and archives each located volume in order and returns
// one row per volume. A failed step is recorded and ends that volume.
func (r *Runner) Run(ctx context.Context, located []reconcile.Located) []resource.Row {
	rows := make([]resource.Row, 0, len(located))
	for _, l := range located {
		rows = append(rows, r.archive(ctx, l))
	}
	return rows
}

func (r *Runner) archive(ctx context.Context, l reconcile.Located) resource.Row {
	region := l.Target.Region
	entry := journal.Entry{Account: l.Target.Account, Region: region, ResourceID: l.Target.ID, Notes: l.Target.Notes}
	row := resource.Row{
		Profile: l.Profile,
		Account: l.Target.Account,
		Region:  region,
		Primary: l.Resource,
		Fields:  map[string]string{FieldNotes: l.Target.Notes},
	}
	for k, v := range l.Resource.Attrs {
		row.Fields[k] = v
	}

	r.write(withType(entry, journal.EntryLocated))
	log.Info().Str("volume", l.Target.ID).Str("account", l.Target.Account).Str("region", region).Str("notes", l.Target.Notes).Msg("creating snapshot")

	id, err := r.Snapshotter.Snapshot(ctx, l.Session, region, l.Resource, l.Target.Notes)
	if err != nil {
		return r.fail(row, entry, "snapshot volume", err, LabelSnapshotFailed)
	}
	entry.SnapshotID = id
	row.Fields[FieldSnapshotID] = id
	r.write(withType(entry, journal.EntrySnapshotCreated))

	if err := r.Snapshotter.WaitCompleted(ctx, l.Session, region, id); err != nil {
		return r.fail(row, entry, "wait for snapshot of", err, LabelWaitFailed)
	}
	r.write(withType(entry, journal.EntrySnapshotDone))

	if err := r.Snapshotter.Archive(ctx, l.Session, region, id); err != nil {
		return r.fail(row, entry, "archive snapshot of", err, LabelTierFailed)
	}
	r.write(withType(entry, journal.EntryTierRequested))

	row.Status = resource.StatusHealthy
	row.Label = LabelRequested
	row.Secondary = &resource.Resource{ID: id, Type: "ebs_snapshot", Provider: "aws", Account: l.Target.Account, Region: region}
	row.Matches = 1
	return row
}

func (r *Runner) fail(row resource.Row, entry journal.Entry, op string, err error, label string) resource.Row {
	r.Sink.AddError(&errsink.ResourceReadError{Op: op, Account: entry.Account, Region: entry.Region, ResourceID: entry.ResourceID, Err: err})
	if r.Journal != nil {
		if jerr := r.Journal.AppendError(entry, err); jerr != nil {
			log.Error().Err(jerr).Str("volume", entry.ResourceID).Msg("journal write failed")
		}
	}
	row.Status = resource.StatusDegraded
	row.Label = label
	return row
}

func (r *Runner) write(e journal.Entry) {
	if r.Journal == nil {
		return
	}
	if err := r.Journal.Append(e); err != nil {
		log.Error().Err(err).Str("volume", e.ResourceID).Msg("journal write failed")
	}
}

func withType(e journal.Entry, t journal.EntryType) journal.Entry {
	e.Type = t
	return e
}
