package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func TestChunker_Chunk(t *testing.T) {
	c, err := NewChunker(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := c.Chunk(context.Background(), "doc1", "alpha beta gamma delta epsilon")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha beta gamma", "gamma delta epsilon"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, ch := range chunks {
		if ch.Content != want[i] {
			t.Errorf("chunk %d content=%q, want %q", i, ch.Content, want[i])
		}
		if ch.DocumentID != "doc1" {
			t.Errorf("chunk %d DocumentID=%s", i, ch.DocumentID)
		}
		if ch.Index != i {
			t.Errorf("chunk %d Index=%d", i, ch.Index)
		}
		if ch.ID == "" {
			t.Error("chunk ID should be set")
		}
	}
	if chunks[1].Start != 2 || chunks[1].End != 5 {
		t.Errorf("second chunk offsets = [%d,%d), want [2,5)", chunks[1].Start, chunks[1].End)
	}
	if chunks[0].Metadata["word_count"] != 3 || chunks[0].Metadata["char_count"] != len("alpha beta gamma") {
		t.Errorf("unexpected metadata: %v", chunks[0].Metadata)
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c, _ := NewChunker(512, 50)
	for _, text := range []string{"", "   ", "   \n\t  "} {
		chunks, err := c.Chunk(context.Background(), "d", text)
		if err != nil {
			t.Fatalf("Chunk(%q) error: %v", text, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Chunk(%q) should return no chunks, got %d", text, len(chunks))
		}
	}
}

func TestChunker_InvalidConfiguration(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{0, 0}, {-3, 1}, {5, -1}} {
		if _, err := NewChunker(tc.size, tc.overlap); !errors.Is(err, models.ErrInvalidConfiguration) {
			t.Errorf("NewChunker(%d, %d) error = %v, want ErrInvalidConfiguration", tc.size, tc.overlap, err)
		}
	}
	var zero Chunker
	if _, err := zero.Chunk(context.Background(), "d", "a b c"); !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Errorf("zero Chunker should fail with ErrInvalidConfiguration, got %v", err)
	}
}

func TestChunker_OverlapAtLeastSizeAdvancesByOne(t *testing.T) {
	c, err := NewChunker(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := c.Chunk(context.Background(), "d", "a b c d")
	if err != nil {
		t.Fatal(err)
	}
	// windows: [0,2) [1,3) [2,4)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Start != i {
			t.Errorf("chunk %d start=%d", i, ch.Start)
		}
	}
}

func TestChunker_CoverageAndOverlap(t *testing.T) {
	words := make([]string, 0, 97)
	for i := 0; i < 97; i++ {
		words = append(words, "w"+strings.Repeat("x", i%5))
	}
	text := strings.Join(words, "\n ")
	for size := 1; size <= 12; size++ {
		for overlap := 0; overlap < size; overlap++ {
			c, err := NewChunker(size, overlap)
			if err != nil {
				t.Fatal(err)
			}
			chunks, err := c.Chunk(context.Background(), "d", text)
			if err != nil {
				t.Fatal(err)
			}
			covered := make([]bool, len(words))
			for i, ch := range chunks {
				for w := ch.Start; w < ch.End; w++ {
					covered[w] = true
				}
				if i > 0 {
					prev := chunks[i-1]
					if got := prev.End - ch.Start; got != overlap {
						t.Fatalf("size=%d overlap=%d: chunks %d/%d overlap by %d", size, overlap, i-1, i, got)
					}
				}
				if ch.End-ch.Start > size {
					t.Fatalf("size=%d: chunk %d has %d words", size, i, ch.End-ch.Start)
				}
			}
			for w, ok := range covered {
				if !ok {
					t.Fatalf("size=%d overlap=%d: word %d not covered", size, overlap, w)
				}
			}
			if chunks[len(chunks)-1].End != len(words) {
				t.Fatalf("size=%d overlap=%d: last chunk does not reach the end", size, overlap)
			}
		}
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c, _ := NewChunker(4, 2)
	text := "the quick brown fox jumps over the lazy dog"
	a, _ := c.Chunk(context.Background(), "d", text)
	b, _ := c.Chunk(context.Background(), "d", text)
	if len(a) != len(b) {
		t.Fatal("chunk counts differ")
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Content != b[i].Content {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunker_Cancelled(t *testing.T) {
	c, _ := NewChunker(2, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chunks, err := c.Chunk(ctx, "d", "a b c d e f")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if chunks != nil {
		t.Errorf("cancelled chunking should return no chunks, got %d", len(chunks))
	}
}

func TestPreprocess(t *testing.T) {
	if Preprocess("  a  b \n\n c ") != "a b c" {
		t.Error("expected trimmed and collapsed spaces")
	}
	if Preprocess("a\x00b") != "a b" {
		t.Errorf("expected NUL replaced by space, got %q", Preprocess("a\x00b"))
	}
}
