package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/svemana/KnowledgeAPI/internal/config"
)

// variedText builds n runes of non-repeating word soup with no sentence
// boundaries, so chunk counts depend only on the window math.
func variedText(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		fmt.Fprintf(&b, "word%04d ", i)
	}
	return b.String()[:n]
}

func TestSplit_WindowMath(t *testing.T) {
	text := variedText(3000)

	chunks := Split(text, config.ChunkSize, config.ChunkOverlap)

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Hash != HashChunk(c.Text) {
			t.Errorf("chunk %d hash mismatch", i)
		}
	}

	// consecutive windows share the overlap region
	step := config.ChunkSize - config.ChunkOverlap
	wantOverlap := strings.TrimSpace(text[step : step+config.ChunkOverlap])
	if !strings.Contains(chunks[0].Text, wantOverlap) || !strings.Contains(chunks[1].Text, wantOverlap) {
		t.Errorf("overlap region missing from adjacent chunks")
	}
}

func TestSplit_BoundaryExtension(t *testing.T) {
	// a sentence end sits just past the window cut, within the lookahead
	filler := variedText(config.ChunkSize + 40)
	text := filler + ". " + variedText(1500)

	chunks := Split(text, config.ChunkSize, config.ChunkOverlap)

	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Errorf("first chunk should extend to the sentence end, got suffix %q",
			chunks[0].Text[len(chunks[0].Text)-10:])
	}
}

func TestSplit_NoBoundaryWithinLookahead(t *testing.T) {
	text := variedText(config.ChunkSize + 600)

	chunks := Split(text, config.ChunkSize, config.ChunkOverlap)

	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if got := len([]rune(chunks[0].Text)); got > config.ChunkSize {
		t.Errorf("chunk extended without a boundary: %d runes", got)
	}
}

func TestSplit_ShortInputs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "Below_Min_Length", text: "too short", want: 0},
		{name: "Empty", text: "   \n  ", want: 0},
		{name: "Single_Window", text: variedText(400), want: 1},
		{name: "Exactly_One_Size", text: variedText(config.ChunkSize), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, config.ChunkSize, config.ChunkOverlap)
			if len(got) != tt.want {
				t.Errorf("chunks = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSplit_DeduplicatesIdenticalWindows(t *testing.T) {
	// uniform text makes consecutive full windows byte-identical
	text := strings.Repeat("a", 3000)

	chunks := Split(text, config.ChunkSize, config.ChunkOverlap)

	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2 after dedup", len(chunks))
	}
	if chunks[0].Hash == chunks[1].Hash {
		t.Errorf("surviving chunks share a hash")
	}
	if chunks[1].Index != 1 {
		t.Errorf("index not contiguous after dedup: %d", chunks[1].Index)
	}
}

func TestSplit_DropsShortTrailingFragment(t *testing.T) {
	// with a 100/10 window the trailing fragment is 60 runes, under the minimum
	text := variedText(150)

	chunks := Split(text, 100, 10)

	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
}
