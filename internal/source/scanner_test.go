package source

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/agentinsights/internal/model"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
}

func paths(files []FileMetadata) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	sort.Strings(out)
	return out
}

func TestScanDir_MissingRoot(t *testing.T) {
	files, err := ScanDir(filepath.Join(t.TempDir(), "does-not-exist"), ".jsonl")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScanDir_UnreadableRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := ResolveRoot(t.TempDir())
	touch(t, filepath.Join(root, "a.jsonl"))
	require.NoError(t, os.Chmod(root, 0))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	files, err := ScanDir(root, ".jsonl")
	require.Error(t, err)
	assert.Empty(t, files)
}

func TestScanDir_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.jsonl")
	touch(t, path)

	files, err := ScanDir(path, ".jsonl")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScanDir_RecursesAndFiltersExtension(t *testing.T) {
	root := ResolveRoot(t.TempDir())
	touch(t, filepath.Join(root, "a.jsonl"))
	touch(t, filepath.Join(root, "proj", "b.jsonl"))
	touch(t, filepath.Join(root, "proj", "deep", "c.jsonl"))
	touch(t, filepath.Join(root, "proj", "notes.json"))
	touch(t, filepath.Join(root, "proj", "README"))

	for _, ext := range []string{".jsonl", "jsonl"} {
		files, err := ScanDir(root, ext)
		require.NoError(t, err, ext)
		assert.Equal(t, []string{
			filepath.Join(root, "a.jsonl"),
			filepath.Join(root, "proj", "b.jsonl"),
			filepath.Join(root, "proj", "deep", "c.jsonl"),
		}, paths(files), ext)
	}
}

func TestScanDir_Metadata(t *testing.T) {
	root := ResolveRoot(t.TempDir())
	path := filepath.Join(root, "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

	files, err := ScanDir(root, ".jsonl")
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, int64(10), f.Size)
	assert.False(t, f.ModifiedAt.IsZero())
	assert.False(t, f.CreatedAt.IsZero())
	assert.Equal(t, "UTC", f.ModifiedAt.Location().String())
}

func TestScanDir_DoesNotFollowSymlinks(t *testing.T) {
	outside := t.TempDir()
	touch(t, filepath.Join(outside, "elsewhere.jsonl"))

	root := ResolveRoot(t.TempDir())
	touch(t, filepath.Join(root, "real.jsonl"))
	if err := os.Symlink(outside, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "elsewhere.jsonl"), filepath.Join(root, "link.jsonl")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := ScanDir(root, ".jsonl")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "real.jsonl")}, paths(files))
}

func TestScanDir_SymlinkedRoot(t *testing.T) {
	target := ResolveRoot(t.TempDir())
	touch(t, filepath.Join(target, "a.jsonl"))

	link := filepath.Join(t.TempDir(), "root")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := ScanDir(link, ".jsonl")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(target, "a.jsonl")}, paths(files))
}

func TestSource_ScanAppliesAcceptRules(t *testing.T) {
	home := ResolveRoot(t.TempDir())
	srcs := DefaultSources(home)
	require.Len(t, srcs, 3)

	claudeRoot := filepath.Join(home, ".claude", "projects")
	touch(t, filepath.Join(claudeRoot, "p", "session.jsonl"))
	touch(t, filepath.Join(claudeRoot, "p", "agent-1234.jsonl"))

	geminiRoot := filepath.Join(home, ".gemini", "tmp")
	touch(t, filepath.Join(geminiRoot, "hash", "chats", "session-1.json"))
	touch(t, filepath.Join(geminiRoot, "hash", "logs.json"))

	byKind := map[model.AgentKind][]string{}
	for _, src := range srcs {
		files, err := src.Scan()
		require.NoError(t, err)
		byKind[src.Kind] = paths(files)
	}

	assert.Equal(t, []string{filepath.Join(claudeRoot, "p", "session.jsonl")}, byKind[model.AgentClaude])
	assert.Empty(t, byKind[model.AgentCodex])
	assert.Equal(t, []string{filepath.Join(geminiRoot, "hash", "chats", "session-1.json")}, byKind[model.AgentGemini])
}

func TestSources_Overrides(t *testing.T) {
	srcs := Sources("/home/u", map[model.AgentKind]string{
		model.AgentCodex:  "/data/codex",
		model.AgentGemini: "",
	})
	roots := map[model.AgentKind]string{}
	for _, s := range srcs {
		roots[s.Kind] = s.Root
	}
	assert.Equal(t, filepath.Join("/home/u", ".claude", "projects"), roots[model.AgentClaude])
	assert.Equal(t, "/data/codex", roots[model.AgentCodex])
	assert.Equal(t, filepath.Join("/home/u", ".gemini", "tmp"), roots[model.AgentGemini])
}

func TestSource_Accepts(t *testing.T) {
	srcs := DefaultSources("/home/u")
	claude, codex, gemini := srcs[0], srcs[1], srcs[2]

	tests := []struct {
		name string
		src  Source
		path string
		want bool
	}{
		{"claude session", claude, "/home/u/.claude/projects/p/s.jsonl", true},
		{"claude agent marker", claude, "/home/u/.claude/projects/p/agent-a1.jsonl", false},
		{"claude wrong ext", claude, "/home/u/.claude/projects/p/s.json", false},
		{"codex rollout", codex, "/home/u/.codex/sessions/2025/01/02/rollout.jsonl", true},
		{"gemini chat", gemini, "/home/u/.gemini/tmp/h/chats/session.json", true},
		{"gemini outside chats", gemini, "/home/u/.gemini/tmp/h/logs.json", false},
		{"gemini chats as file name", gemini, "/home/u/.gemini/tmp/h/chats.json", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.src.Accepts(tt.path))
		})
	}
}
