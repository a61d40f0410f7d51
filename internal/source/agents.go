package source

import (
	"path/filepath"
	"strings"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// Source is one agent's log root and the rules for picking files out of it.
type Source struct {
	Kind model.AgentKind
	Root string
	Ext  string

	// Accept filters scanned paths. Nil accepts everything.
	Accept func(path string) bool
}

// Accepts reports whether path belongs to this source.
func (s Source) Accepts(path string) bool {
	if normalizeExt(s.Ext) != filepath.Ext(path) {
		return false
	}
	return s.Accept == nil || s.Accept(path)
}

// Scan lists the accepted files under the source root.
func (s Source) Scan() ([]FileMetadata, error) {
	files, err := ScanDir(s.Root, s.Ext)
	if err != nil {
		return nil, err
	}
	kept := files[:0]
	for _, f := range files {
		if s.Accept == nil || s.Accept(f.Path) {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// DefaultSources returns the standard log roots under home.
func DefaultSources(home string) []Source {
	return []Source{
		{
			Kind:   model.AgentClaude,
			Root:   filepath.Join(home, ".claude", "projects"),
			Ext:    ".jsonl",
			Accept: notAgentMarker,
		},
		{
			Kind: model.AgentCodex,
			Root: filepath.Join(home, ".codex", "sessions"),
			Ext:  ".jsonl",
		},
		{
			Kind:   model.AgentGemini,
			Root:   filepath.Join(home, ".gemini", "tmp"),
			Ext:    ".json",
			Accept: InChatsDir,
		},
	}
}

// Sources returns the default sources with per-agent root overrides applied.
// Empty override values are ignored.
func Sources(home string, roots map[model.AgentKind]string) []Source {
	srcs := DefaultSources(home)
	for i := range srcs {
		if root := roots[srcs[i].Kind]; root != "" {
			srcs[i].Root = root
		}
	}
	return srcs
}

// IsAgentMarker reports whether a Claude log is a sub-agent sidechain
// transcript. Those duplicate the parent session and are not counted.
func IsAgentMarker(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "agent")
}

func notAgentMarker(path string) bool { return !IsAgentMarker(path) }

// InChatsDir reports whether path has a "chats" directory component.
func InChatsDir(path string) bool {
	dir := filepath.ToSlash(filepath.Dir(path))
	for _, part := range strings.Split(dir, "/") {
		if part == "chats" {
			return true
		}
	}
	return false
}
