package domain

import (
	"encoding/json"
	"time"
)

type Assignment struct {
	ID            int64     `json:"id"`
	StudentID     string    `json:"student_id"`
	Filename      string    `json:"filename"`
	MimeType      string    `json:"mime_type"`
	StoragePath   string    `json:"-"`
	OriginalText  string    `json:"-"`
	Topic         string    `json:"topic,omitempty"`
	AcademicLevel string    `json:"academic_level,omitempty"`
	WordCount     int       `json:"word_count"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// AnalysisResult holds what the external analysis workflow reported back.
// Every field except the identifiers stays nil until the callback arrives.
type AnalysisResult struct {
	ID                      int64           `json:"id"`
	AssignmentID            int64           `json:"assignment_id"`
	SuggestedSources        json.RawMessage `json:"suggested_sources"`
	PlagiarismScore         *float64        `json:"plagiarism_score"`
	FlaggedSections         json.RawMessage `json:"flagged_sections"`
	ResearchSuggestions     *string         `json:"research_suggestions"`
	CitationRecommendations *string         `json:"citation_recommendations"`
	ConfidenceScore         *float64        `json:"confidence_score"`
	AnalyzedAt              *time.Time      `json:"analyzed_at"`
}

func (r AnalysisResult) Completed() bool {
	return r.AnalyzedAt != nil
}

type AnalysisUpdate struct {
	SuggestedSources        json.RawMessage `json:"suggested_sources"`
	PlagiarismScore         *float64        `json:"plagiarism_score"`
	FlaggedSections         json.RawMessage `json:"flagged_sections"`
	ResearchSuggestions     *string         `json:"research_suggestions"`
	CitationRecommendations *string         `json:"citation_recommendations"`
	ConfidenceScore         *float64        `json:"confidence_score"`
}

type Submission struct {
	AssignmentID int64  `json:"assignment_id"`
	AnalysisID   int64  `json:"analysis_id"`
	Message      string `json:"msg"`
}

// AnalysisRequest is what gets forwarded to the external analysis webhook.
type AnalysisRequest struct {
	AssignmentID int64
	StudentEmail string
	StudentID    string
	Filename     string
	MimeType     string
}
