package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
)

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestDiscoverFilesDirsAndGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"), "a")
	writeFile(t, filepath.Join(dir, "b.PDF"), "b")
	writeFile(t, filepath.Join(dir, "notes.txt"), "n")
	writeFile(t, filepath.Join(dir, "sub", "c.png"), "c")
	writeFile(t, filepath.Join(dir, ".hidden", "d.jpg"), "d")
	writeFile(t, filepath.Join(dir, "other", "e.tiff"), "e")

	paths, stats, err := Discover([]string{
		filepath.Join(dir, "a.jpg"),
		dir,
		filepath.Join(dir, "other", "*.tiff"),
		filepath.Join(dir, "missing.jpg"),
	}, DiscoverOptions{SkipHidden: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.PDF"),
		filepath.Join(dir, "other", "e.tiff"),
		filepath.Join(dir, "sub", "c.png"),
	}, paths)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Equal(t, uint32(1), stats.Skipped)
}

func TestDiscoverIncludesHiddenWhenAsked(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hidden", "d.jpg"), "d")

	paths, _, err := Discover([]string{dir}, DiscoverOptions{})
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestDiscoverCustomExts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"), "a")
	writeFile(t, filepath.Join(dir, "b.pdf"), "b")

	paths, _, err := Discover([]string{dir}, DiscoverOptions{Exts: ExtSet([]string{".PDF"})})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.pdf")}, paths)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.JPG")
	writeFile(t, path, "hello")

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "receipt.JPG", f.Name)
	assert.Equal(t, "jpg", f.Ext)
	assert.Equal(t, int64(5), f.Size)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", f.HashHex)
	assert.Equal(t, []byte("hello"), f.Data)
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")

	_, err := Load(filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)

	_, err = Load(filepath.Join(dir, "absent.jpg"))
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = Load(dir)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCheckFileSizeLimits(t *testing.T) {
	_, err := CheckFile("scan.pdf", 80<<20)
	assert.NoError(t, err)
	_, err = CheckFile("scan.pdf", 80<<20+1)
	assert.ErrorIs(t, err, common.ErrFileTooLarge)
	_, err = CheckFile("photo.png", 100<<20)
	assert.NoError(t, err)
	_, err = CheckFile("photo.png", 450<<20+1)
	assert.ErrorIs(t, err, common.ErrFileTooLarge)
	_, err = CheckFile("noext", 1)
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)
}

func TestRetryQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", DefaultRetryQueueFile)
	q := NewRetryQueue(path, nil)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return fixed }

	assert.Empty(t, q.List())
	require.NoError(t, q.Add("/tmp/a.jpg", "a.jpg"))
	require.NoError(t, q.Add("", "b.jpg"))

	entries := q.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "a.jpg", entries[0].ImageID)
	assert.Equal(t, "/tmp/a.jpg", entries[0].ImageURL)
	assert.True(t, fixed.Equal(entries[1].Timestamp))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "b.jpg", decoded[1]["image_id"])

	drained, err := q.Drain()
	require.NoError(t, err)
	assert.Equal(t, entries, drained)
	assert.Empty(t, q.List())

	require.NoError(t, q.Add("/tmp/c.jpg", "c.jpg"))
	require.NoError(t, q.Clear())
	assert.Empty(t, q.List())
	require.NoError(t, q.Clear())
}

func TestRetryQueueCorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultRetryQueueFile)
	writeFile(t, path, "{not json")
	q := NewRetryQueue(path, nil)

	assert.Empty(t, q.List())
	require.NoError(t, q.Add("x", "x.jpg"))
	assert.Len(t, q.List(), 1)
}

func TestWatchEmitsNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "existing.jpg"), "e")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := Watch(ctx, WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(dir, "existing.jpg"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit")
	}

	writeFile(t, filepath.Join(dir, "ignored.txt"), "x")
	writeFile(t, filepath.Join(dir, "new.png"), "n")

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(dir, "new.png"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not emit new file")
	}

	cancel()
	for range events {
	}
}

func TestWatchRequiresRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
