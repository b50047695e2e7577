package domain

import "time"

// DefaultEmbeddingDimensions must match the vector(N) column of academic_sources.
const DefaultEmbeddingDimensions = 1536

// EmbeddingTask tells the provider what the vector is going to be used for.
type EmbeddingTask string

const (
	TaskDocument EmbeddingTask = "document"
	TaskQuery    EmbeddingTask = "query"
)

type AcademicSource struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Authors         string    `json:"authors"`
	PublicationYear int       `json:"publication_year"`
	Abstract        string    `json:"abstract"`
	FullText        string    `json:"-"`
	SourceType      string    `json:"source_type"`
	Embedding       []float32 `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewSource is the catalog input for a source that has not been stored yet.
type NewSource struct {
	Title           string `json:"title" yaml:"title"`
	Authors         string `json:"authors" yaml:"authors"`
	PublicationYear int    `json:"publication_year" yaml:"publication_year"`
	Abstract        string `json:"abstract" yaml:"abstract"`
	FullText        string `json:"full_text,omitempty" yaml:"full_text"`
	SourceType      string `json:"source_type" yaml:"source_type"`
}

// SourceMatch is the public projection of a source returned by similarity search.
// It never carries the full text or the raw embedding.
type SourceMatch struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Authors         string  `json:"authors"`
	PublicationYear int     `json:"publication_year"`
	Abstract        string  `json:"abstract"`
	SourceType      string  `json:"source_type"`
	Similarity      float64 `json:"similarity"`
}
