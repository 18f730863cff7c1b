package subtitle

import "testing"

const simpleSRT = `1
00:00:00,000 --> 00:00:01,830
hello there

2
00:00:01,910 --> 00:00:03,610
general kenobi
`

func TestParseSRT(t *testing.T) {
	segments, err := ParseSRT(simpleSRT, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}

	first := segments[0]
	if first.Text != "hello there" || first.Lang != "en" {
		t.Errorf("unexpected first segment: %+v", first)
	}
	if first.Start != 0 || first.End != 1.83 {
		t.Errorf("first segment times = [%v, %v], want [0, 1.83]", first.Start, first.End)
	}

	second := segments[1]
	if second.Text != "general kenobi" {
		t.Errorf("unexpected second segment: %+v", second)
	}
	if second.Start != 1.91 || second.End != 3.61 {
		t.Errorf("second segment times = [%v, %v]", second.Start, second.End)
	}
}

func TestParseSRTMultiLineCue(t *testing.T) {
	content := `1
00:00:00,000 --> 00:00:02,000
first line
second line
`
	segments, err := ParseSRT(content, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want one per line", len(segments))
	}
	if segments[0].Text != "first line" || segments[1].Text != "second line" {
		t.Errorf("unexpected segments: %+v", segments)
	}
}

func TestParseSRTRollingDuplicates(t *testing.T) {
	// YouTube auto subs repeat the previous line at the top of the next cue
	content := `1
00:00:00,000 --> 00:00:02,000
hello world

2
00:00:02,000 --> 00:00:04,000
hello world
next line
`
	segments, err := ParseSRT(content, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(segments), segments)
	}

	if segments[0].Text != "hello world" || segments[0].Start != 0 || segments[0].End != 4 {
		t.Errorf("continuation not merged: %+v", segments[0])
	}
	if segments[1].Text != "next line" || segments[1].Start != 2 {
		t.Errorf("unexpected second segment: %+v", segments[1])
	}
}

func TestParseSRTNonContiguousDuplicateStaysSeparate(t *testing.T) {
	content := `1
00:00:00,000 --> 00:00:02,000
hello world

2
00:00:03,000 --> 00:00:04,000
hello world
`
	segments, err := ParseSRT(content, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(segments), segments)
	}
}

func TestParseSRTCollapsesWhitespace(t *testing.T) {
	content := `1
00:00:00,000 --> 00:00:01,000
  spaced   out  [\h__\h]
`
	segments, err := ParseSRT(content, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "spaced out" {
		t.Fatalf("unexpected segments: %+v", segments)
	}
}

func TestParseSRTBadTimestamp(t *testing.T) {
	content := `1
garbage --> 00:00:01,000
text
`
	if _, err := ParseSRT(content, "en"); err == nil {
		t.Fatal("expected error for bad timestamp")
	}
}

func TestParseSRTEmpty(t *testing.T) {
	segments, err := ParseSRT("", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("expected no segments, got %+v", segments)
	}
}
