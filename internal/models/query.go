package models

import "fmt"

// RetrieveRequest is a retrieval query with optional overrides.
type RetrieveRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Validate checks the request and caps TopK at 100. A zero TopK means "use the default".
func (r *RetrieveRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if r.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative", ErrInvalidInput)
	}
	if r.TopK > 100 {
		r.TopK = 100
	}
	if r.Threshold != nil && (*r.Threshold < -1 || *r.Threshold > 1) {
		return fmt.Errorf("%w: threshold must be within [-1, 1]", ErrInvalidInput)
	}
	return nil
}
