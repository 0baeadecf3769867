package schema

// Metadata keys attached to chunks and index records.
const (
	// MetadataKeyFileName is the key for the source file name.
	MetadataKeyFileName = "source_file"
	// MetadataKeyChunkID is the key for the deterministic chunk identifier.
	MetadataKeyChunkID = "chunk_id"
	// MetadataKeyChunkIndex is the zero-based position of a chunk in its document.
	MetadataKeyChunkIndex = "chunk_index"
	// MetadataKeyStartOffset is the offset of a chunk in the source text, in the splitter's units.
	MetadataKeyStartOffset = "start_offset"
	// MetadataKeyChunkSize is the length of the chunk text in characters.
	MetadataKeyChunkSize = "chunk_size"
	// MetadataKeyChunkPreview is a short prefix of the chunk text for display.
	MetadataKeyChunkPreview = "chunk_preview"
	// MetadataKeyOriginalDocID links a chunk back to the document it was split from.
	MetadataKeyOriginalDocID = "original_doc_id"
	// MetadataKeyText holds the full chunk text in stores that only keep metadata.
	MetadataKeyText = "text"
)

// Document is the central data structure representing a piece of text and its associated data.
// It is the primary data carrier throughout the RAG pipeline.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string

	// Text is the string content of the document chunk.
	Text string

	// Embedding is the vector representation of the text.
	Embedding []float32

	// Metadata holds arbitrary data about the document.
	// It is used to store information like source_file, chunk_index, etc.
	Metadata map[string]interface{}
}

// Record is one entry of a vector index.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]interface{}
}

// Match is a Record returned by a similarity query together with its score.
// Higher scores are more similar.
type Match struct {
	Record Record
	Score  float32
}

// RecordFromDocument converts an embedded chunk into an index record.
func RecordFromDocument(doc *Document) Record {
	md := make(map[string]interface{}, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		md[k] = v
	}
	md[MetadataKeyText] = doc.Text
	return Record{
		ID:       doc.ID,
		Vector:   doc.Embedding,
		Text:     doc.Text,
		Metadata: md,
	}
}
