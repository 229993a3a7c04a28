package snapshot_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eborbath/corpustat/internal/dtm"
	"github.com/eborbath/corpustat/internal/snapshot"
	apperrors "github.com/eborbath/corpustat/pkg/errors"
)

func buildSample(t *testing.T) *dtm.DTM {
	t.Helper()
	m, err := dtm.Build([]dtm.Entry{
		{Doc: "d1", Term: "chicken"},
		{Doc: "d1", Term: "bird"},
		{Doc: "d2", Term: "bird"},
		{Doc: "d2", Term: "eat"},
		{Doc: "d2", Term: "eat"},
	})
	require.NoError(t, err)
	return m
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := buildSample(t)

	name, err := snapshot.Write(dir, "press-2020", m)
	require.NoError(t, err)
	assert.Contains(t, name, "press-2020_")

	restored, err := snapshot.Read(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.True(t, m.Equal(restored))
	assert.Equal(t, m.Docs(), restored.Docs())
	assert.Equal(t, m.Terms(), restored.Terms())
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	m := buildSample(t)

	name, err := snapshot.Write(dir, "press", m)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the renamed snapshot remains")
	assert.Equal(t, name, entries[0].Name())
}

func TestRoundTripKeepsEmptyRows(t *testing.T) {
	dir := t.TempDir()
	m := buildSample(t)
	projected := m.Project([]string{"eat"})
	require.Equal(t, 2, projected.NumDocs())

	name, err := snapshot.Write(dir, "filtered", projected)
	require.NoError(t, err)

	restored, err := snapshot.Read(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, 2, restored.NumDocs(), "zero-occupancy rows survive the round trip")
	assert.True(t, restored.HasDoc("d1"))
	assert.Empty(t, restored.Row("d1"))
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken_1.cdtm")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0644))

	_, err := snapshot.Read(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSnapshotCorrupt))
}

func TestReadRejectsFlippedBits(t *testing.T) {
	dir := t.TempDir()
	m := buildSample(t)

	name, err := snapshot.Write(dir, "bits", m)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[snapshot.HeaderSize+2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = snapshot.Read(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSnapshotCorrupt))
}

func TestReadRejectsWrongMagic(t *testing.T) {
	dir := t.TempDir()
	m := buildSample(t)

	name, err := snapshot.Write(dir, "magic", m)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] = 0x00
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = snapshot.Read(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSnapshotCorrupt))
}

func TestLatestPicksNewestPerCorpus(t *testing.T) {
	dir := t.TempDir()
	m := buildSample(t)

	first, err := snapshot.Write(dir, "press", m)
	require.NoError(t, err)
	second, err := snapshot.Write(dir, "press", m)
	require.NoError(t, err)
	other, err := snapshot.Write(dir, "tv", m)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	latest, err := snapshot.Latest(dir)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, filepath.Join(dir, second), latest["press"])
	assert.Equal(t, filepath.Join(dir, other), latest["tv"])
}

func TestLatestMissingDirIsEmpty(t *testing.T) {
	latest, err := snapshot.Latest(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, latest)
}
