package ingestion

import "fmt"

const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 250
)

// SplitText cuts text into overlapping fixed-size windows. Each window is
// whitespace-normalized; windows that normalize to nothing are dropped. The
// overlap must be smaller than the size or the window would never advance.
func SplitText(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}

	step := size - overlap
	chunks := make([]string, 0, (len(text)+step-1)/step)
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		if chunk := normalizeWhitespace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	return chunks, nil
}
