package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/voyago/voyago-mvp/engine/domain"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestChunkWordsWindowing(t *testing.T) {
	chunks := ChunkWords(words(500), 220, 40)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for 500 words, got %d", len(chunks))
	}
	sizes := []int{220, 220, 140}
	for i, c := range chunks {
		if got := len(strings.Fields(c)); got != sizes[i] {
			t.Errorf("chunk %d: expected %d words, got %d", i, sizes[i], got)
		}
	}

	// Windows start at stride 180: offsets 0, 180, 360.
	if !strings.HasPrefix(chunks[1], "w180 ") {
		t.Errorf("chunk 1 must start at word 180: %.30s", chunks[1])
	}
	if !strings.HasPrefix(chunks[2], "w360 ") {
		t.Errorf("chunk 2 must start at word 360: %.30s", chunks[2])
	}
}

func TestChunkWordsOverlap(t *testing.T) {
	chunks := ChunkWords(words(500), 220, 40)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		tail := strings.Join(prev[len(prev)-40:], " ")
		head := strings.Join(cur[:40], " ")
		if tail != head {
			t.Errorf("chunks %d/%d do not share 40 words", i-1, i)
		}
	}
}

func TestChunkWordsCoverage(t *testing.T) {
	text := words(777)
	chunks := ChunkWords(text, 220, 40)

	seen := make(map[string]bool)
	for _, c := range chunks {
		for _, w := range strings.Fields(c) {
			seen[w] = true
		}
	}
	for _, w := range strings.Fields(text) {
		if !seen[w] {
			t.Fatalf("word %s lost by chunking", w)
		}
	}
}

func TestChunkWordsShortText(t *testing.T) {
	chunks := ChunkWords("just a few words here", 220, 40)
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if chunks[0] != "just a few words here" {
		t.Errorf("short text must survive intact: %q", chunks[0])
	}
}

func TestChunkWordsEmpty(t *testing.T) {
	if chunks := ChunkWords("   \n\t ", 220, 40); chunks != nil {
		t.Fatalf("whitespace-only text must yield no chunks, got %v", chunks)
	}
}

func TestChunkWordsOverlapAtLeastWindow(t *testing.T) {
	chunks := ChunkWords(words(5), 3, 5)

	// Stride clamps to one word, so chunking still terminates and covers
	// the text.
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != "w0 w1 w2" || chunks[2] != "w2 w3 w4" {
		t.Errorf("unexpected windows: %v", chunks)
	}
}

func TestChunkWordsDefaults(t *testing.T) {
	chunks := ChunkWords(words(300), 0, -1)
	if len(chunks) != 2 {
		t.Fatalf("expected default window to apply, got %d chunks", len(chunks))
	}
}

func TestChunkDocMetadata(t *testing.T) {
	doc := domain.SourceDoc{
		URL:   "https://a.example/guide",
		Title: "Guide",
		Text:  words(300),
	}
	chunks := ChunkDoc("lisbon", doc, 220, 40)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.SourceURL != doc.URL {
			t.Errorf("chunk %d: wrong source url %q", i, c.SourceURL)
		}
		if c.Meta[domain.MetaTopic] != "lisbon" {
			t.Errorf("chunk %d: wrong topic %q", i, c.Meta[domain.MetaTopic])
		}
		if c.Meta[domain.MetaChunkID] != fmt.Sprint(i) {
			t.Errorf("chunk %d: wrong chunk id %q", i, c.Meta[domain.MetaChunkID])
		}
	}
}

func TestChunkCorpus(t *testing.T) {
	docs := []domain.SourceDoc{
		{URL: "https://a.example/1", Text: words(300)},
		{URL: "https://a.example/2", Text: "short page"},
		{URL: "https://a.example/3", Text: ""},
	}
	chunks := ChunkCorpus("porto", docs, 220, 40)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks total, got %d", len(chunks))
	}
	if chunks[2].SourceURL != "https://a.example/2" {
		t.Errorf("empty doc must contribute nothing, got %q", chunks[2].SourceURL)
	}
}
