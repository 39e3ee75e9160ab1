package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func TestNewIndex(t *testing.T) {
	for typ, want := range map[string]string{"": "memory", "memory": "memory", "chromem": "chromem"} {
		idx, err := NewIndex(typ, nil)
		if err != nil {
			t.Fatalf("NewIndex(%q): %v", typ, err)
		}
		if idx.Type() != want {
			t.Errorf("NewIndex(%q).Type() = %q, want %q", typ, idx.Type(), want)
		}
		if err := idx.Insert(context.Background(), emb("a", "d", 1, 0, 0)); err != nil {
			t.Fatalf("NewIndex(%q) Insert: %v", typ, err)
		}
		if idx.Count() != 1 {
			t.Errorf("NewIndex(%q) Count=%d, want 1", typ, idx.Count())
		}
		_ = idx.Close()
	}
}

func TestNewIndex_Unknown(t *testing.T) {
	_, err := NewIndex("faiss", nil)
	if !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
