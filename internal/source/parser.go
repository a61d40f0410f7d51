package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// maxLineSize bounds a single JSONL line. Longer lines are skipped.
const maxLineSize = 8 * 1024 * 1024

var (
	// ErrParse marks a file whose top-level structure could not be decoded.
	ErrParse = errors.New("malformed log file")

	// ErrUnsupportedAgent is returned for kinds without a normalizer.
	ErrUnsupportedAgent = errors.New("unsupported agent")
)

// ParseError reports a whole-file decode failure.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ParseResult holds the output of normalizing a single log file.
type ParseResult struct {
	Record       model.NormalizedRecord
	SkippedLines int
	Err          error
}

// ParseFile normalizes one log file of the given kind. Line-level problems
// are counted in SkippedLines; only I/O failures and undecodable
// single-document files set Err.
func ParseFile(kind model.AgentKind, meta FileMetadata) ParseResult {
	switch kind {
	case model.AgentClaude:
		return parseClaude(meta)
	case model.AgentCodex:
		return parseCodex(meta)
	case model.AgentGemini:
		return parseGemini(meta)
	default:
		return ParseResult{Err: fmt.Errorf("%w: %s", ErrUnsupportedAgent, kind)}
	}
}

func newRecord(kind model.AgentKind, meta FileMetadata) model.NormalizedRecord {
	return model.NormalizedRecord{
		Agent:      kind,
		FilePath:   meta.Path,
		CreatedAt:  meta.CreatedAt,
		ModifiedAt: meta.ModifiedAt,
		FileSize:   meta.Size,
		ToolCalls:  []string{},
	}
}

// tokensOrNil drops usage that carries no input and no output.
func tokensOrNil(u model.TokenUsage) *model.TokenUsage {
	if u.Input == 0 && u.Output == 0 {
		return nil
	}
	return &u
}

// forEachLine calls fn for every non-blank line in r. fn reports whether the
// line was usable; unusable and over-long lines are counted as skipped. The
// slice passed to fn is only valid for the duration of the call.
func forEachLine(r io.Reader, fn func(line []byte) bool) (skipped int, err error) {
	br := bufio.NewReaderSize(r, 256*1024)
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return skipped, nil
			}
			return skipped, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		switch {
		case tooLong:
			skipped++
		case len(bytes.TrimSpace(buf)) == 0:
		case !fn(bytes.TrimSpace(buf)):
			skipped++
		}
		buf = buf[:0]
		tooLong = false
	}
}

// firstText returns the first non-empty value.
func firstText(vals ...text) string {
	for _, v := range vals {
		if v != "" {
			return string(v)
		}
	}
	return ""
}
