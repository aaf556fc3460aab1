package domain

// Chunk is a bounded-length word window cut from one source document.
// It is the unit of embedding and retrieval. Chunks are immutable once
// created and owned by the vector store that indexes them.
type Chunk struct {
	Text      string            `json:"text"`
	SourceURL string            `json:"source_url"`
	Meta      map[string]string `json:"meta"`
}

// Metadata keys every chunk carries.
const (
	MetaTopic   = "topic"
	MetaChunkID = "chunk_id"
)
