package models

// ScoredEntry is a single search hit: the indexed entry plus its distance to
// the query and the derived cosine similarity (1.0 = identical direction).
type ScoredEntry struct {
	MediaEntry
	SquaredDistance float64 `json:"distance"`
	Similarity      float64 `json:"similarity"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []ScoredEntry `json:"results"`
	Total     int           `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
	Query     string        `json:"query"`
}
