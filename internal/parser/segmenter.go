package parser

import (
	"regexp"
	"strings"

	"quizsmith/internal/models"
)

// SegmentConfig tunes the heading heuristics. The defaults are policy, not a
// contract; callers wanting different thresholds set them explicitly.
type SegmentConfig struct {
	// MaxHeadingLen is the length (in runes) below which a block's first
	// line qualifies as a heading candidate.
	MaxHeadingLen int
	// MinTextLen is the input length below which segmentation short-circuits
	// to a single untitled section.
	MinTextLen int
}

func (c SegmentConfig) withDefaults() SegmentConfig {
	if c.MaxHeadingLen <= 0 {
		c.MaxHeadingLen = 80
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = 20
	}
	return c
}

// Blocks are separated by two or more consecutive blank lines.
var blockSplit = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)

var (
	chapterPat    = regexp.MustCompile(`(?i)^(chapter|part|section|unit|appendix)\s+[0-9IVXLC]+\b`)
	numberedPat   = regexp.MustCompile(`^\d+[.)]\s*\S*`)
	subSectionPat = regexp.MustCompile(`^\d+(\.\d+)+[.)]?(\s|$)`)
	letteredPat   = regexp.MustCompile(`^[A-Z][.)](\s|$)`)
)

// Segment splits extracted plain text into an ordered list of sections.
// Deterministic and side-effect free: identical input always yields an
// identical section sequence. Always returns at least one section.
func Segment(text string, cfg SegmentConfig) []models.Section {
	cfg = cfg.withDefaults()

	text = strings.ReplaceAll(text, "\r\n", "\n")
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < cfg.MinTextLen {
		return []models.Section{{Body: trimmed}}
	}

	var sections []models.Section
	open := -1

	for _, block := range blockSplit.Split(trimmed, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		first, rest := splitFirstLine(block)
		if isHeadingCandidate(first, cfg.MaxHeadingLen) {
			sections = append(sections, models.Section{
				Title: first,
				Body:  strings.TrimSpace(rest),
				Level: headingLevel(first),
			})
			open = len(sections) - 1
			continue
		}

		if open >= 0 {
			sections[open].Body = strings.TrimSpace(sections[open].Body + "\n\n" + block)
		} else {
			sections = append(sections, models.Section{Body: block})
			open = len(sections) - 1
		}
	}

	if len(sections) == 0 {
		sections = []models.Section{{Body: trimmed}}
	}
	for i := range sections {
		sections[i].Ordinal = i
	}
	return sections
}

func splitFirstLine(block string) (first, rest string) {
	if i := strings.IndexByte(block, '\n'); i >= 0 {
		return strings.TrimSpace(block[:i]), block[i+1:]
	}
	return strings.TrimSpace(block), ""
}

// isHeadingCandidate applies the heading heuristics to a block's first line:
// short, or no terminal punctuation, or a numbered/lettered heading shape.
func isHeadingCandidate(line string, maxLen int) bool {
	if line == "" {
		return false
	}
	if len([]rune(line)) < maxLen {
		return true
	}
	if !hasTerminalPunct(line) {
		return true
	}
	return chapterPat.MatchString(line) || subSectionPat.MatchString(line) ||
		numberedPat.MatchString(line) || letteredPat.MatchString(line)
}

func hasTerminalPunct(line string) bool {
	switch line[len(line)-1] {
	case '.', '!', '?', ':', ';', ',':
		return true
	}
	return false
}

// headingLevel places a heading in a simple hierarchy: chapter-style and
// top-level numbered headings at 0, dotted sub-sections at 1, lettered and
// unlabeled headings at 2.
func headingLevel(line string) int {
	switch {
	case subSectionPat.MatchString(line):
		return 1
	case chapterPat.MatchString(line), numberedPat.MatchString(line):
		return 0
	case letteredPat.MatchString(line):
		return 2
	default:
		return 2
	}
}

// Reconstruct joins section titles and bodies back into a single text. After
// whitespace normalization the result matches the segmented input, which is
// what makes section boundaries safe to cite.
func Reconstruct(sections []models.Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.Title != "" && s.Body != "" {
			parts = append(parts, s.Title+"\n"+s.Body)
		} else if s.Title != "" {
			parts = append(parts, s.Title)
		} else {
			parts = append(parts, s.Body)
		}
	}
	return strings.Join(parts, "\n\n")
}
