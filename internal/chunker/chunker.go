// Package chunker splits README text into bounded-length segments on
// sentence boundaries. Sequences are lazy and restartable: each range over a
// returned iter.Seq re-runs the split from the start of the document.
package chunker

import (
	"errors"
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"

	"moxigen/internal/types"
)

const joiner = "\n\n"

var ErrBadBounds = errors.New("chunker: bounds must satisfy max >= min > 0")

// Chunker holds the character bounds for produced segments. Every chunk has
// length in [Min, Max] except possibly the final one, which may be shorter.
type Chunker struct {
	Min int
	Max int
}

func New(min, max int) (*Chunker, error) {
	if min <= 0 || max < min {
		return nil, ErrBadBounds
	}
	return &Chunker{Min: min, Max: max}, nil
}

// Chunks yields one Chunk per segment of the record's README, in document
// order. All chunks of one record share the record's file tree slice; the
// tree is never copied and never mutated.
func (c *Chunker) Chunks(rec types.RepoRecord) iter.Seq[types.Chunk] {
	return func(yield func(types.Chunk) bool) {
		for text := range c.Split(rec.Readme) {
			ch := types.Chunk{
				Text:        text,
				FileTree:    rec.FileTree,
				RepoURL:     rec.RepoURL,
				ProjectType: rec.ProjectType,
				Owner:       rec.Owner,
				Repo:        rec.Repo,
			}
			if !yield(ch) {
				return
			}
		}
	}
}

// Split yields the text's segments. An empty text yields nothing; a text no
// longer than Max yields exactly one segment (the whole text, even when it is
// shorter than Min). Boundaries fall on sentence terminators or blank lines
// whenever possible; a single run longer than Max with no terminator is hard
// split at Max.
func (c *Chunker) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		if len(text) <= c.Max {
			yield(text)
			return
		}

		current := ""
		for _, p := range splitSentences(text) {
			switch {
			case current == "":
				current = p
			case len(current)+len(joiner)+len(p) <= c.Max:
				current += joiner + p
			case len(current) >= c.Min:
				if !yield(current) {
					return
				}
				current = p
			default:
				// Too small to stand alone; merge and let the hard split
				// below carve it, so no content is ever dropped.
				current += joiner + p
			}
			for len(current) > c.Max {
				cut := SplitIndex(current, c.Max)
				if !yield(current[:cut]) {
					return
				}
				current = current[cut:]
			}
		}
		// The trailing remainder may be shorter than Min.
		if current != "" {
			yield(current)
		}
	}
}

// SplitIndex returns the largest byte index not exceeding max that falls on a
// rune boundary, so hard cuts never produce invalid UTF-8. When even the first
// rune is wider than max, its full width is returned rather than zero.
func SplitIndex(s string, max int) int {
	if len(s) <= max {
		return len(s)
	}
	i := max
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	if i == 0 {
		_, n := utf8.DecodeRuneInString(s)
		return n
	}
	return i
}

// Collect materializes the split for callers that want a slice.
func (c *Chunker) Collect(text string) []string {
	var out []string
	for s := range c.Split(text) {
		out = append(out, s)
	}
	return out
}

var (
	paragraphRe = regexp.MustCompile(`\n{2,}`)
	sentenceRe  = regexp.MustCompile(`([.!?])[ \t\r\n]+`)
)

// splitSentences breaks text into trimmed sentence-or-paragraph parts,
// keeping terminators attached to the sentence they end.
func splitSentences(text string) []string {
	var parts []string
	for _, para := range paragraphRe.Split(text, -1) {
		// Re-attach the terminator that the split consumed.
		marked := sentenceRe.ReplaceAllString(para, "$1\x00")
		for _, s := range strings.Split(marked, "\x00") {
			s = strings.TrimSpace(s)
			if s != "" {
				parts = append(parts, s)
			}
		}
	}
	return parts
}
