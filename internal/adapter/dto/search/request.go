package search

// Request carries the query parameters of GET /v1/search
type Request struct {
	Query         string `query:"query" validate:"required,min=1"`
	Regex         bool   `query:"regex"`
	CaseSensitive bool   `query:"case_sensitive"`

	// Repeatable "name:op:value" clauses
	VideoFilters    []string `query:"video_filter" validate:"dive,filter_clause"`
	SubtitleFilters []string `query:"subtitle_filter" validate:"dive,filter_clause"`

	// Context lines around each match, in seconds
	TimeBefore float64 `query:"time_before" validate:"min=-1,max=600"`
	TimeAfter  float64 `query:"time_after" validate:"min=-1,max=600"`
}
