package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRender = errors.New("render failed")

func TestWriteAtomic_ReplacesFile(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "balances.json")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644)) //nolint:gosec // G306: test file
	require.NoError(t, WriteAtomic(target, []byte("new"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // G304: path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is removed")
}

func TestWriteAtomic_CreatesParentDirectories(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "reports", "2026", "balances.csv")
	require.NoError(t, WriteAtomic(target, []byte("wallet,chain\n"), 0o644))

	data, err := os.ReadFile(target) //nolint:gosec // G304: path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "wallet,chain\n", string(data))
}

func TestWriteAtomic_FailureLeavesOriginalFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "balances.json")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o644)) //nolint:gosec // G306: test file

	require.NoError(t, os.Chmod(dir, 0o500)) //nolint:gosec // G302: intentionally read-only
	defer func() {
		_ = os.Chmod(dir, 0o700) //nolint:gosec // G302: restore for cleanup
	}()

	require.Error(t, WriteAtomic(target, []byte("replacement"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // G304: path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestWriteAtomic_EmptyPath(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, WriteAtomic("", []byte("data"), 0o600), ErrEmptyPath)
	require.ErrorIs(t, WriteAtomicFunc("", 0o600, func(io.Writer) error { return nil }), ErrEmptyPath)
}

func TestWriteAtomicFunc(t *testing.T) {
	t.Parallel()

	t.Run("writes rendered output", func(t *testing.T) {
		t.Parallel()
		target := filepath.Join(t.TempDir(), "out.txt")
		err := WriteAtomicFunc(target, 0o644, func(w io.Writer) error {
			_, err := fmt.Fprint(w, "rendered")
			return err
		})
		require.NoError(t, err)

		data, err := os.ReadFile(target) //nolint:gosec // G304: path from t.TempDir()
		require.NoError(t, err)
		assert.Equal(t, "rendered", string(data))
	})

	t.Run("render error writes nothing", func(t *testing.T) {
		t.Parallel()
		target := filepath.Join(t.TempDir(), "out.txt")
		err := WriteAtomicFunc(target, 0o644, func(io.Writer) error { return errRender })
		require.ErrorIs(t, err, errRender)
		assert.NoFileExists(t, target)
	})
}
