// Package subtitle parses SRT subtitle files into transcription segments.
package subtitle

import (
	"strconv"
	"strings"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/internal/domain/entities"
)

type srtCue struct {
	start float64
	end   float64
	lines []string
}

// ParseSRT parses SRT content into transcription segments tagged with the
// given language.
//
// YouTube's automatic subtitles roll: each cue repeats the previous cue's
// last line before adding a new one. A repeated line whose cue starts exactly
// where the previous cue ended is treated as a continuation, its segment's
// end time is extended instead of emitting a duplicate.
func ParseSRT(content, lang string) ([]entities.TranscriptionSegment, error) {
	cues, err := parseCues(content)
	if err != nil {
		return nil, err
	}

	segments := []entities.TranscriptionSegment{}
	var unfinished []entities.TranscriptionSegment

	for _, cue := range cues {
		lines := cleanLines(cue.lines)
		if len(lines) == 0 {
			continue
		}

		// flush segments that this cue does not continue
		for len(unfinished) > 0 && len(lines) > 0 &&
			(unfinished[0].Text != lines[0] || unfinished[0].End != cue.start) {
			segments = append(segments, unfinished[0])
			unfinished = unfinished[1:]
		}

		// extend segments the cue repeats
		for len(unfinished) > 0 && len(lines) > 0 &&
			unfinished[0].Text == lines[0] && unfinished[0].End == cue.start {
			lines = lines[1:]
			unfinished[0].End = cue.end
		}

		for _, line := range lines {
			unfinished = append(unfinished, entities.TranscriptionSegment{
				Start: cue.start,
				End:   cue.end,
				Text:  line,
				Lang:  lang,
			})
		}
	}

	return append(segments, unfinished...), nil
}

func parseCues(content string) ([]srtCue, error) {
	var cues []srtCue
	var current *srtCue

	for _, rawLine := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(rawLine)

		switch {
		case line == "":
			if current != nil {
				cues = append(cues, *current)
				current = nil
			}
		case strings.Contains(line, "-->"):
			parts := strings.SplitN(line, "-->", 2)
			start, err := parseTimestamp(strings.TrimSpace(parts[0]))
			if err != nil {
				return nil, err
			}
			end, err := parseTimestamp(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, err
			}
			current = &srtCue{start: start, end: end}
		case current != nil:
			current.lines = append(current.lines, line)
		default:
			// sequence number before the timestamp line
			if _, err := strconv.Atoi(line); err != nil {
				return nil, apperrors.ErrInvalidArgument("unexpected subtitle line: " + line)
			}
		}
	}
	if current != nil {
		cues = append(cues, *current)
	}

	return cues, nil
}

// parseTimestamp converts "HH:MM:SS,mmm" (or with a dot) to seconds.
func parseTimestamp(value string) (float64, error) {
	value = strings.ReplaceAll(value, ",", ".")
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, apperrors.ErrInvalidArgument("bad subtitle timestamp: " + value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, apperrors.ErrInvalidArgument("bad subtitle timestamp: " + value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, apperrors.ErrInvalidArgument("bad subtitle timestamp: " + value)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, apperrors.ErrInvalidArgument("bad subtitle timestamp: " + value)
	}

	return float64(hours*3600+minutes*60) + seconds, nil
}

// cleanLines collapses whitespace and drops YouTube's placeholder artifacts.
func cleanLines(lines []string) []string {
	var cleaned []string
	for _, line := range lines {
		line = strings.ReplaceAll(line, `[\h__\h]`, "")
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return cleaned
}
