package domain

import "time"

type DocumentType string

const (
	TypeNotice           DocumentType = "notice"
	TypeDepartmentNotice DocumentType = "department_notice"
	TypeSchedule         DocumentType = "schedule"
)

func ParseDocumentType(raw string) (DocumentType, bool) {
	switch DocumentType(raw) {
	case TypeNotice, TypeDepartmentNotice, TypeSchedule:
		return DocumentType(raw), true
	case "cs_notice":
		return TypeDepartmentNotice, true
	default:
		return "", false
	}
}

type Metadata struct {
	Date   string       `json:"date,omitempty"`
	Title  string       `json:"title,omitempty"`
	Type   DocumentType `json:"type"`
	Source string       `json:"source,omitempty"`
}

// Document is one indexed chunk as stored in the document store.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// SourceRecord is a raw notice or schedule row before chunking.
type SourceRecord struct {
	ID      string       `json:"id"`
	Type    DocumentType `json:"type"`
	Title   string       `json:"title"`
	Date    string       `json:"date"`
	Content string       `json:"content"`
	URL     string       `json:"url,omitempty"`
}

// IngestJob asks a worker to load, chunk and index one source file.
type IngestJob struct {
	Path       string       `json:"path"`
	Type       DocumentType `json:"type"`
	EnqueuedAt time.Time    `json:"enqueued_at,omitzero"`
}

type DateRange struct {
	Latest     string `json:"latest"`
	Oldest     string `json:"oldest"`
	TotalDates int    `json:"total_dates"`
}

type IndexReport struct {
	Total         int `json:"total"`
	Skipped       int `json:"skipped"`
	Indexed       int `json:"indexed"`
	FailedBatches int `json:"failed_batches"`
}
