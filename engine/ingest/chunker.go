// Package ingest turns gathered source documents into indexed chunks: it
// splits page text into overlapping word windows and drives the embedding
// index build.
package ingest

import (
	"strconv"
	"strings"

	"github.com/voyago/voyago-mvp/engine/domain"
)

const (
	// DefaultWindowWords is the chunk width in words.
	DefaultWindowWords = 220
	// DefaultOverlapWords is how many words consecutive chunks share, so a
	// fact cut at a window edge is still whole in the next window.
	DefaultOverlapWords = 40
)

// ChunkWords splits text into overlapping windows of window words with the
// given overlap. The stride never drops below one word, so overlap >= window
// still makes progress. Text shorter than one window yields a single chunk.
func ChunkWords(text string, window, overlap int) []string {
	if window <= 0 {
		window = DefaultWindowWords
	}
	if overlap < 0 {
		overlap = 0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := window - overlap
	if stride < 1 {
		stride = 1
	}

	var chunks []string
	for i := 0; i < len(words); i += stride {
		end := i + window
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// ChunkDoc chunks one source document, attaching topic and chunk_id metadata.
func ChunkDoc(topic string, doc domain.SourceDoc, window, overlap int) []domain.Chunk {
	texts := ChunkWords(doc.Text, window, overlap)
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			Text:      text,
			SourceURL: doc.URL,
			Meta: map[string]string{
				domain.MetaTopic:   topic,
				domain.MetaChunkID: strconv.Itoa(i),
			},
		}
	}
	return chunks
}

// ChunkCorpus chunks every document in a gathered corpus.
func ChunkCorpus(topic string, docs []domain.SourceDoc, window, overlap int) []domain.Chunk {
	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, ChunkDoc(topic, doc, window, overlap)...)
	}
	return chunks
}
