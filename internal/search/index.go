// Package search builds an offset-indexed view over transcription lines so
// substring and regex matches map back to the lines (and timestamps) they
// came from.
package search

import (
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/internal/domain/entities"
)

// Line is one searchable transcription line with its start time in seconds.
type Line struct {
	Start float64
	Text  string
}

// indexedLine remembers where a line landed in the joined content.
type indexedLine struct {
	start     int
	end       int
	lineIndex int
}

// Index is a searchable transcription: all lines joined into one string with
// the offset span of every line recorded, so match offsets convert back to
// line indexes with binary search.
type Index struct {
	lines   []Line
	content string
	indexed []indexedLine
}

// New builds the index. Empty lines are skipped but keep their index, line
// breaks inside a line become spaces and lines are joined with single spaces
// so matches can cross line boundaries.
func New(lines []Line) *Index {
	var content strings.Builder
	var indexed []indexedLine
	lastIndex := 0

	for idx, line := range lines {
		text := strings.ReplaceAll(line.Text, "\n", " ")
		if text == "" {
			continue
		}
		if lastIndex != 0 {
			text = " " + text
		}

		content.WriteString(text)
		indexed = append(indexed, indexedLine{
			start:     lastIndex,
			end:       lastIndex + len(text),
			lineIndex: idx,
		})
		lastIndex += len(text)
	}

	return &Index{lines: lines, content: content.String(), indexed: indexed}
}

// FromTranscription indexes a transcription's segments.
func FromTranscription(t *entities.Transcription) *Index {
	lines := make([]Line, 0, len(t.Segments))
	for _, seg := range t.Segments {
		lines = append(lines, Line{Start: seg.Start, Text: seg.Text})
	}
	return New(lines)
}

func (x *Index) Lines() []Line   { return x.lines }
func (x *Index) Content() string { return x.content }

// Search finds all non-overlapping matches left to right and returns, per
// match, the indexes of the lines the match spans. A plain value matches as a
// literal substring, a regex value as a pattern.
func (x *Index) Search(value string, isRegex, caseSensitive bool) ([][]int, error) {
	if value == "" {
		return nil, nil
	}

	pattern := value
	if !isRegex {
		pattern = regexp.QuoteMeta(value)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apperrors.ErrInvalidArgument("bad search pattern: " + err.Error())
	}

	var results [][]int
	offset := 0
	for offset <= len(x.content) {
		loc := re.FindStringIndex(x.content[offset:])
		if loc == nil {
			break
		}

		matchStart := offset + loc[0]
		matchEnd := offset + loc[1]
		if offset == matchEnd {
			break // empty match, stop to prevent an infinite loop
		}

		indexes, err := x.matchToLineIndexes(matchStart, matchEnd)
		if err != nil {
			return nil, err
		}
		results = append(results, indexes)
		offset = matchEnd
	}

	return results, nil
}

// matchToLineIndexes converts a match's offset span into the indexes of the
// lines it covers.
func (x *Index) matchToLineIndexes(matchStart, matchEnd int) ([]int, error) {
	// last line whose start is at or before the match start
	idx := sort.Search(len(x.indexed), func(i int) bool {
		return x.indexed[i].start > matchStart
	})
	linesStart := max(idx-1, 0)

	// first line whose end reaches the match end
	idx = linesStart + sort.Search(len(x.indexed)-linesStart, func(i int) bool {
		return x.indexed[linesStart+i].end >= matchEnd
	})
	linesStop := min(idx+1, len(x.indexed))

	if linesStart >= linesStop {
		return nil, apperrors.ErrSearchIndexInconsistent(matchStart, matchEnd)
	}

	indexes := make([]int, 0, linesStop-linesStart)
	for _, line := range x.indexed[linesStart:linesStop] {
		indexes = append(indexes, line.lineIndex)
	}
	return indexes, nil
}

// IndexToPastIndex returns the index of the earliest line that starts within
// deltaT seconds before the given line. Used to pull context lines into
// search results.
func (x *Index) IndexToPastIndex(index int, deltaT float64) (int, error) {
	if deltaT < 0 {
		return 0, apperrors.ErrInvalidArgument("time delta must not be negative")
	}

	minStart := x.lines[index].Start - deltaT
	for index > 0 && x.lines[index-1].Start >= minStart {
		index--
	}
	return index, nil
}

// IndexToFutureIndex returns the index of the latest line that starts within
// deltaT seconds after the given line.
func (x *Index) IndexToFutureIndex(index int, deltaT float64) (int, error) {
	if deltaT < 0 {
		return 0, apperrors.ErrInvalidArgument("time delta must not be negative")
	}

	maxStart := x.lines[index].Start + deltaT
	for index+1 < len(x.lines) && x.lines[index+1].Start <= maxStart {
		index++
	}
	return index, nil
}
