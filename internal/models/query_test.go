package models

import (
	"errors"
	"testing"
)

func TestRetrieveRequest_Validate(t *testing.T) {
	neg := -2.0
	ok := 0.5
	tests := []struct {
		name    string
		req     *RetrieveRequest
		wantErr bool
	}{
		{"empty query", &RetrieveRequest{Query: ""}, true},
		{"valid query", &RetrieveRequest{Query: "hello"}, false},
		{"negative top k", &RetrieveRequest{Query: "x", TopK: -1}, true},
		{"caps top k at 100", &RetrieveRequest{Query: "x", TopK: 500}, false},
		{"threshold out of range", &RetrieveRequest{Query: "x", Threshold: &neg}, true},
		{"threshold in range", &RetrieveRequest{Query: "x", Threshold: &ok}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if tt.req.TopK > 100 {
				t.Errorf("expected top_k capped at 100, got %d", tt.req.TopK)
			}
		})
	}
}

func TestDocumentStatus_Terminal(t *testing.T) {
	cases := map[DocumentStatus]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusProcessed:  true,
		StatusFailed:     true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
