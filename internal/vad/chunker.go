// Package vad turns diarization segments into padded voice-activity chunks
// sized for Whisper transcription.
package vad

import (
	"fmt"
	"sort"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/internal/domain/entities"
)

// Chunk is one span of detected speech, in seconds from the start of the
// audio.
type Chunk struct {
	Start float64
	End   float64
}

func (c Chunk) Duration() float64 { return c.End - c.Start }

// Params control chunking. Defaults fit Whisper's internal 30s window.
type Params struct {
	Padding     float64
	MinDuration float64
	MaxDuration float64
	MaxGap      float64
}

// DefaultParams are tuned for Whisper transcription of streamed speech.
func DefaultParams() Params {
	return Params{
		Padding:     0.2,
		MinDuration: 0.1,
		MaxDuration: 30.0,
		MaxGap:      3.0,
	}
}

// FromDiarization converts diarization segments into voice-activity chunks:
// overlapping segments are merged, close chunks are joined starting from the
// smallest gaps, tiny chunks that cannot hold real words are dropped, and the
// result is padded with a little silence on both sides as a buffer against
// imprecise timestamps.
func FromDiarization(dia *entities.Diarization, params Params) ([]Chunk, error) {
	// padding grows every chunk on both ends, the cap must account for it
	maxDuration := params.MaxDuration - 2*params.Padding
	if params.MaxGap < params.Padding {
		return nil, apperrors.ErrInvalidArgument(
			fmt.Sprintf("max gap %v must not be smaller than padding %v", params.MaxGap, params.Padding))
	}

	chunks := make([]Chunk, 0, len(dia.Segments))
	for _, seg := range dia.Segments {
		if seg.Start >= seg.End {
			return nil, apperrors.ErrInvalidArgument(
				fmt.Sprintf("segment start %v must be before end %v", seg.Start, seg.End))
		}
		chunks = append(chunks, Chunk{Start: seg.Start, End: seg.End})
	}

	chunks = mergeOverlapping(chunks)
	chunks = mergeClose(chunks, maxDuration, params.MaxGap)

	kept := chunks[:0]
	for _, c := range chunks {
		if c.Duration() >= params.MinDuration {
			kept = append(kept, c)
		}
	}

	return pad(kept, params.Padding), nil
}

// mergeOverlapping sorts chunks and merges every overlapping run into one.
func mergeOverlapping(chunks []Chunk) []Chunk {
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var merged []Chunk
	for _, chunk := range sorted {
		if len(merged) > 0 && chunk.Start <= merged[len(merged)-1].End {
			if chunk.End > merged[len(merged)-1].End {
				merged[len(merged)-1].End = chunk.End
			}
			continue
		}
		merged = append(merged, chunk)
	}
	return merged
}

type gapDuration struct {
	gap      float64
	duration float64
}

// mergeClose joins adjacent chunks, smallest gap first, as long as the gap
// stays within maxGap and the joined span within maxDuration. Chunks must be
// sorted and non-overlapping.
func mergeClose(chunks []Chunk, maxDuration, maxGap float64) []Chunk {
	if len(chunks) <= 1 {
		return chunks
	}

	results := make([]Chunk, len(chunks))
	copy(results, chunks)

	gapAt := func(idx int) gapDuration {
		return gapDuration{
			gap:      results[idx+1].Start - results[idx].End,
			duration: results[idx+1].End - results[idx].Start,
		}
	}

	gaps := make([]gapDuration, len(results)-1)
	for idx := range gaps {
		gaps[idx] = gapAt(idx)
	}

	for len(results) >= 2 {
		mergeIdx := -1
		for idx, g := range gaps {
			if g.gap > maxGap || g.duration > maxDuration {
				continue
			}
			if mergeIdx == -1 || g.gap < gaps[mergeIdx].gap {
				mergeIdx = idx
			}
		}
		if mergeIdx == -1 {
			break
		}

		results[mergeIdx] = Chunk{Start: results[mergeIdx].Start, End: results[mergeIdx+1].End}
		results = append(results[:mergeIdx+1], results[mergeIdx+2:]...)

		if mergeIdx-1 >= 0 {
			gaps[mergeIdx-1] = gapAt(mergeIdx - 1)
		}
		if mergeIdx < len(gaps)-1 {
			gaps[mergeIdx] = gapAt(mergeIdx)
			gaps = append(gaps[:mergeIdx+1], gaps[mergeIdx+2:]...)
		} else {
			gaps = gaps[:mergeIdx]
		}
	}

	return results
}

// pad expands each chunk by the padding, but never past the midpoint of the
// silence toward its neighbor. The first chunk never starts before zero and
// the last chunk gets the full padding at its end.
func pad(chunks []Chunk, padding float64) []Chunk {
	results := make([]Chunk, 0, len(chunks))

	for idx, chunk := range chunks {
		minStart := 0.0
		if idx > 0 {
			minStart = chunk.Start - (chunk.Start-chunks[idx-1].End)/2
		}

		maxEnd := chunk.End + padding
		if idx < len(chunks)-1 {
			maxEnd = chunk.End + (chunks[idx+1].Start-chunk.End)/2
		}

		results = append(results, Chunk{
			Start: max(chunk.Start-padding, minStart),
			End:   min(chunk.End+padding, maxEnd),
		})
	}

	return results
}
