package usecase

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

const defaultScheduleTitle = "일정"

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://www.knou.ac.kr/chunks"))

// PrepareChunks turns source records into indexable chunks. Ids are derived
// from the record content, so preparing the same records twice yields the
// same ids.
func PrepareChunks(records []domain.SourceRecord, chunker ports.Chunker) []domain.Document {
	var out []domain.Document
	for _, record := range records {
		out = append(out, prepareRecord(record, chunker)...)
	}
	return out
}

func prepareRecord(record domain.SourceRecord, chunker ports.Chunker) []domain.Document {
	meta := recordMetadata(record)
	text := fmt.Sprintf("[%s]\n%s\n%s", meta.Title, meta.Date, record.Content)

	key := chunkKey(record.Type, meta.Source, meta.Title, meta.Date, record.Content)
	chunks := chunker.Split(text)
	out := make([]domain.Document, 0, len(chunks))
	for idx, chunk := range chunks {
		out = append(out, domain.Document{
			ID:       fmt.Sprintf("%s_%s_%d", record.Type, key, idx),
			Text:     chunk,
			Metadata: meta,
		})
	}
	return out
}

func recordMetadata(record domain.SourceRecord) domain.Metadata {
	meta := domain.Metadata{
		Date:   strings.TrimSpace(record.Date),
		Title:  strings.TrimSpace(record.Title),
		Type:   record.Type,
		Source: strings.TrimSpace(record.URL),
	}
	if record.Type == domain.TypeSchedule {
		if meta.Title == "" {
			meta.Title = defaultScheduleTitle
		}
		if meta.Source == "" {
			meta.Source = string(record.Type)
		}
	}
	return meta
}

func chunkKey(docType domain.DocumentType, source, title, date, content string) string {
	name := strings.Join([]string{string(docType), source, title, date, content}, "|")
	id := uuid.NewSHA1(chunkNamespace, []byte(name))
	return strings.ReplaceAll(id.String(), "-", "")[:12]
}
