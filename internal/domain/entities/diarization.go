package entities

import "math"

// DiarizationSegment is one speaker-attributed time span.
type DiarizationSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Diarization is the stored result of a speaker-diarization run, configuration
// included so re-runs with different settings produce distinct content IDs.
type Diarization struct {
	// configuration
	Checkpoint              string `json:"checkpoint"`
	SegmentationModel       string `json:"segmentation_model,omitempty"`
	SegmentationBatchSize   int    `json:"segmentation_batch_size"`
	EmbeddingModel          string `json:"embedding_model,omitempty"`
	EmbeddingBatchSize      int    `json:"embedding_batch_size"`
	EmbeddingExcludeOverlap bool   `json:"embedding_exclude_overlap"`
	Clustering              string `json:"clustering"`

	// result

	// Segments may overlap in time. That is a legitimate diarization output
	// (two speakers talking at once), not an error.
	Segments []DiarizationSegment `json:"segments"`

	// Embeddings maps speaker label to the mean speaker embedding.
	Embeddings map[string][]float64 `json:"embeddings,omitempty"`
}

// SpeakerCount returns the number of distinct speakers in the segments.
func (d *Diarization) SpeakerCount() int {
	speakers := make(map[string]struct{})
	for _, seg := range d.Segments {
		speakers[seg.Speaker] = struct{}{}
	}
	return len(speakers)
}

// DropNaNEmbeddings removes every speaker embedding containing a NaN value.
// Some diarization runs produce them for speakers with too little speech.
func (d *Diarization) DropNaNEmbeddings() {
	for speaker, vector := range d.Embeddings {
		for _, v := range vector {
			if math.IsNaN(v) {
				delete(d.Embeddings, speaker)
				break
			}
		}
	}
}
