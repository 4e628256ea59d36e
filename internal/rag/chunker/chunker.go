package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/svemana/KnowledgeAPI/internal/config"
)

// Chunk is one retrieval unit cut out of a document. Hash identifies the chunk
// content and drives both in-run dedup and stable vector point IDs.
type Chunk struct {
	Index int
	Text  string
	Hash  string
}

var boundaryRunes = map[rune]bool{'.': true, '!': true, '?': true, '\n': true}

// Split cuts text into overlapping windows of roughly size characters. A window
// ending mid-sentence is extended up to the boundary lookahead so chunks end on
// sentence or line boundaries when one is near. Fragments shorter than the
// minimum are dropped, as are exact duplicates within the same document.
func Split(text string, size, overlap int) []Chunk {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) < config.ChunkMinLength {
		return nil
	}
	if size <= 0 || overlap >= size {
		return nil
	}

	step := size - overlap
	seen := map[string]bool{}
	var chunks []Chunk

	for start := 0; start < len(runes); start += step {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = extendToBoundary(runes, end)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(piece)) < config.ChunkMinLength {
			if end == len(runes) {
				break
			}
			continue
		}

		hash := HashChunk(piece)
		if !seen[hash] {
			seen[hash] = true
			chunks = append(chunks, Chunk{Index: len(chunks), Text: piece, Hash: hash})
		}

		if end == len(runes) {
			break
		}
	}
	return chunks
}

// extendToBoundary pushes the cut forward to just past the next sentence or
// line end, but never further than the lookahead allows.
func extendToBoundary(runes []rune, end int) int {
	limit := end + config.BoundaryLookahead
	if limit > len(runes) {
		limit = len(runes)
	}
	for i := end; i < limit; i++ {
		if boundaryRunes[runes[i]] {
			return i + 1
		}
	}
	return end
}

func HashChunk(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
