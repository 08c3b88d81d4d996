package fs_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/wash/internal/adapters/fs"
	"go.trai.ch/wash/internal/core/domain"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, make([]byte, size), domain.FilePerm))
}

func TestHasher_Fingerprint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lock := filepath.Join(dir, domain.LockfileName)
	content := []byte("version = 4\n\n[[package]]\nname = \"serde\"\nversion = \"1.0.0\"\n")
	require.NoError(t, os.WriteFile(lock, content, domain.FilePerm))

	h := fs.NewHasher()
	got, err := h.Fingerprint(lock)
	require.NoError(t, err)
	assert.Equal(t, xxhash.Sum64(content), got)

	again, err := h.Fingerprint(lock)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	require.NoError(t, os.WriteFile(lock, append(content, '\n'), domain.FilePerm))
	changed, err := h.Fingerprint(lock)
	require.NoError(t, err)
	assert.NotEqual(t, got, changed)
}

func TestHasher_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := fs.NewHasher().Fingerprint(filepath.Join(t.TempDir(), "missing.lock"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrFingerprintFailed.Error())
}

func TestWalker_SkipsVCSAndIgnored(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), 1)
	writeFile(t, filepath.Join(root, "sub", "b.txt"), 1)
	writeFile(t, filepath.Join(root, ".git", "HEAD"), 1)
	writeFile(t, filepath.Join(root, "node_modules", "x.js"), 1)

	var got []string
	for f := range fs.NewWalker().WalkFiles(root, []string{"node_modules"}) {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		got = append(got, rel)
	}
	slices.Sort(got)

	assert.Equal(t, []string{"a.txt", filepath.Join("sub", "b.txt")}, got)
}

func TestSizer_ArtifactSize(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), domain.TargetDirName)
	writeFile(t, filepath.Join(target, "CACHEDIR.TAG"), 10)
	writeFile(t, filepath.Join(target, "debug", "app"), 1000)
	writeFile(t, filepath.Join(target, "debug", "deps", "libserde.rlib"), 500)
	writeFile(t, filepath.Join(target, "release", "app"), 2000)

	sizer := fs.NewSizer(fs.NewWalker())
	got, err := sizer.ArtifactSize(t.Context(), target)
	require.NoError(t, err)
	assert.Equal(t, int64(3510), got)

	require.NoError(t, os.RemoveAll(filepath.Join(target, "release")))
	got, err = sizer.ArtifactSize(t.Context(), target)
	require.NoError(t, err)
	assert.Equal(t, int64(1510), got)
}

func TestSizer_MissingDirectory(t *testing.T) {
	t.Parallel()

	got, err := fs.NewSizer(fs.NewWalker()).ArtifactSize(t.Context(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, got)
}
