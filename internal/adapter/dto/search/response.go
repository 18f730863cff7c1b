package search

import usecase "github.com/johnquangdev/holo-archive/internal/usecase/search"

// Response is the body of a successful GET /v1/search
type Response struct {
	Query   string           `json:"query"`
	Count   int              `json:"count"`
	Results []usecase.Result `json:"results"`
	Cached  bool             `json:"cached"`
}
