package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeLog creates a temp log file from lines and returns its metadata.
func writeLog(t *testing.T, name string, lines ...string) FileMetadata {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	meta, err := StatFile(path)
	require.NoError(t, err)
	return meta
}
