package entities

import (
	"math"
	"testing"
)

func TestSpeakerCount(t *testing.T) {
	dia := Diarization{
		Segments: []DiarizationSegment{
			{Start: 0, End: 1, Speaker: "SPEAKER_00"},
			{Start: 1, End: 2, Speaker: "SPEAKER_01"},
			{Start: 2, End: 3, Speaker: "SPEAKER_00"},
		},
	}
	if got := dia.SpeakerCount(); got != 2 {
		t.Fatalf("speaker count = %d, want 2", got)
	}
}

func TestDropNaNEmbeddings(t *testing.T) {
	dia := Diarization{
		Embeddings: map[string][]float64{
			"SPEAKER_00": {0.1, math.NaN()},
			"SPEAKER_01": {0.1, 0.2},
		},
	}
	dia.DropNaNEmbeddings()

	if _, ok := dia.Embeddings["SPEAKER_00"]; ok {
		t.Error("embedding with NaN should be dropped")
	}
	if _, ok := dia.Embeddings["SPEAKER_01"]; !ok {
		t.Error("clean embedding should survive")
	}
}
