package entities

// TranscriptionSegment is a contiguous piece of transcribed speech with
// absolute timestamps in seconds from the start of the source audio.
type TranscriptionSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Lang  string  `json:"lang,omitempty"`
}

// TranscriptionParams records how a transcription was produced.
type TranscriptionParams struct {
	Model       string  `json:"model,omitempty"`
	Language    string  `json:"language,omitempty"`
	Padding     float64 `json:"padding,omitempty"`
	MinDuration float64 `json:"min_duration,omitempty"`
	MaxDuration float64 `json:"max_duration,omitempty"`
	MaxGap      float64 `json:"max_gap,omitempty"`
}

// Transcription is an ordered sequence of transcribed segments plus the
// parameters that produced it.
type Transcription struct {
	Source   string                 `json:"source"`
	Segments []TranscriptionSegment `json:"segments"`
	Params   TranscriptionParams    `json:"params,omitempty"`
}

// Langs returns the set of languages present across all segments.
func (t *Transcription) Langs() []string {
	seen := make(map[string]struct{})
	var langs []string
	for _, seg := range t.Segments {
		if seg.Lang == "" {
			continue
		}
		if _, ok := seen[seg.Lang]; !ok {
			seen[seg.Lang] = struct{}{}
			langs = append(langs, seg.Lang)
		}
	}
	return langs
}
