package search

import (
	"reflect"
	"testing"
)

func testIndex() *Index {
	return New([]Line{
		{Start: 0, Text: "hello world"},
		{Start: 5, Text: "foo bar"},
		{Start: 20, Text: "hello again"},
	})
}

func TestNewJoinsLines(t *testing.T) {
	x := testIndex()
	want := "hello world foo bar hello again"
	if x.Content() != want {
		t.Fatalf("content = %q, want %q", x.Content(), want)
	}
}

func TestNewSkipsEmptyLines(t *testing.T) {
	x := New([]Line{
		{Start: 0, Text: "one"},
		{Start: 1, Text: ""},
		{Start: 2, Text: "two\nthree"},
	})
	if x.Content() != "one two three" {
		t.Fatalf("content = %q", x.Content())
	}

	// the empty line keeps its index, matches map to the original lines
	matches, err := x.Search("two three", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(matches, [][]int{{2}}) {
		t.Fatalf("matches = %v, want [[2]]", matches)
	}
}

func TestSearchExact(t *testing.T) {
	x := testIndex()

	matches, err := x.Search("hello", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(matches, [][]int{{0}, {2}}) {
		t.Fatalf("matches = %v, want [[0] [2]]", matches)
	}
}

func TestSearchCaseSensitivity(t *testing.T) {
	x := testIndex()

	matches, err := x.Search("HELLO", false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("case-sensitive matches = %v, want none", matches)
	}

	matches, err = x.Search("HELLO", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("case-insensitive matches = %v, want 2", matches)
	}
}

func TestSearchAbsentValue(t *testing.T) {
	x := testIndex()

	matches, err := x.Search("nothing here", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %v, want none", matches)
	}
}

func TestSearchEmptyValue(t *testing.T) {
	x := testIndex()

	matches, err := x.Search("", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %v, want none", matches)
	}
}

func TestSearchCrossesLineBoundary(t *testing.T) {
	x := testIndex()

	// "world foo" spans the join between lines 0 and 1
	matches, err := x.Search("world foo", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(matches, [][]int{{0, 1}}) {
		t.Fatalf("matches = %v, want [[0 1]]", matches)
	}
}

func TestSearchRegex(t *testing.T) {
	x := New([]Line{
		{Start: 0, Text: "foo"},
		{Start: 1, Text: "obar"},
	})

	matches, err := x.Search("o.*b", true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(matches, [][]int{{0, 1}}) {
		t.Fatalf("matches = %v, want [[0 1]]", matches)
	}
}

func TestSearchBadRegex(t *testing.T) {
	x := testIndex()
	if _, err := x.Search("(unclosed", true, false); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestSearchNonOverlapping(t *testing.T) {
	x := New([]Line{{Start: 0, Text: "aaaa"}})

	matches, err := x.Search("aa", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %v, want 2 non-overlapping", matches)
	}
}

func TestIndexToPastIndex(t *testing.T) {
	x := New([]Line{
		{Start: 0, Text: "a"},
		{Start: 5, Text: "b"},
		{Start: 20, Text: "c"},
	})

	// 10s reaches line 1 but not line 0
	got, err := x.IndexToPastIndex(2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Fatalf("past index = %d, want 2", got)
	}

	got, err = x.IndexToPastIndex(1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("past index = %d, want 0", got)
	}

	if _, err := x.IndexToPastIndex(1, -1); err == nil {
		t.Fatal("expected error for negative delta")
	}
}

func TestIndexToFutureIndex(t *testing.T) {
	x := New([]Line{
		{Start: 0, Text: "a"},
		{Start: 2, Text: "b"},
		{Start: 20, Text: "c"},
	})

	got, err := x.IndexToFutureIndex(0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("future index = %d, want 1", got)
	}

	// expanding from the last line stays at the last line
	got, err = x.IndexToFutureIndex(2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Fatalf("future index = %d, want 2", got)
	}

	if _, err := x.IndexToFutureIndex(0, -1); err == nil {
		t.Fatal("expected error for negative delta")
	}
}
