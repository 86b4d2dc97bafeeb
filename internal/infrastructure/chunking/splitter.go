package chunking

import "strings"

// Splitter cuts a page of standard text into passage-sized chunks. The
// window is measured in runes and slides with overlap so a clause
// requirement that straddles a boundary still lands whole in one chunk.
// When a paragraph break falls inside the tail of the window the cut
// moves back to it, keeping clause bodies intact.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// breakPoint looks backwards from end for a paragraph break within the
// last quarter of the window and cuts there when found.
func (s *Splitter) breakPoint(runes []rune, start, end int) int {
	floor := end - s.ChunkSize/4
	if floor < start+1 {
		floor = start + 1
	}
	for i := end; i > floor; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	return end
}
