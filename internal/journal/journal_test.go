package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, j.Append(Entry{Type: EntryLocated, Account: "A", Region: "us-east-1", ResourceID: "vol-1", Notes: "old"}))
	require.NoError(t, j.Append(Entry{Type: EntrySnapshotCreated, Account: "A", Region: "us-east-1", ResourceID: "vol-1", SnapshotID: "snap-1"}))
	require.NoError(t, j.AppendError(Entry{Type: EntryTierRequested, Account: "A", Region: "us-east-1", ResourceID: "vol-1", SnapshotID: "snap-1"}, errors.New("IncorrectState")))
	require.NoError(t, j.Close())

	assert.Equal(t, dir, filepath.Dir(j.Path()))

	entries, err := ReadEntries(j.Path())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, int64(1), entries[0].Sequence)
	assert.Equal(t, EntryLocated, entries[0].Type)
	assert.Equal(t, "old", entries[0].Notes)
	assert.False(t, entries[0].Timestamp.IsZero())

	assert.Equal(t, "snap-1", entries[1].SnapshotID)

	assert.Equal(t, int64(3), entries[2].Sequence)
	assert.Equal(t, EntryFailed, entries[2].Type)
	assert.Equal(t, "IncorrectState", entries[2].Error)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "journal")

	j, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestReadEntries_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"sequence\":1}\nnot json\n"), 0o644))

	_, err := ReadEntries(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 2")
}

func TestReadEntries_Missing(t *testing.T) {
	_, err := ReadEntries(filepath.Join(t.TempDir(), "none.jsonl"))
	require.Error(t, err)
}
