package knowledge

// VectorDimension is the embedding width the chunks schema is declared with.
// nomic-embed-text produces 768-dimensional vectors; see db/migrations.
const VectorDimension = 768

// Chunk is an immutable fragment of ingested document text together with its
// embedding. Chunks are produced by the ingestion pipeline; this service only
// stores and retrieves them.
type Chunk struct {
	ID        string
	Content   string
	Embedding []float32
}

// Result is a single similarity-search hit.
type Result struct {
	Content    string
	Similarity float64
}
