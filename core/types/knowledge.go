package types

import "time"

// SourceRecord is a raw retrieval unit returned by a knowledge source.
type SourceRecord struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	URLs       []string `json:"urls,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// KnowledgeItem is a scored, synthesized answer to one retrieval query,
// with provenance and related-topic links. Immutable once created.
type KnowledgeItem struct {
	Query      string    `json:"query"`
	Topic      string    `json:"topic"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Related    []string  `json:"related,omitempty"`
}
