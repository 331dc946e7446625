package qdrant

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://www.knou.ac.kr/qdrant-points"))

// pointID maps a chunk id onto the UUID space Qdrant accepts. The original id
// travels in the payload.
func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func documentPayload(doc domain.Document) map[string]any {
	return map[string]any{
		"chunk_id": doc.ID,
		"text":     doc.Text,
		"date":     doc.Metadata.Date,
		"title":    doc.Metadata.Title,
		"type":     string(doc.Metadata.Type),
		"source":   doc.Metadata.Source,
	}
}

func documentFromPayload(payload map[string]any) domain.Document {
	return domain.Document{
		ID:   getStringPayload(payload, "chunk_id"),
		Text: getStringPayload(payload, "text"),
		Metadata: domain.Metadata{
			Date:   getStringPayload(payload, "date"),
			Title:  getStringPayload(payload, "title"),
			Type:   domain.DocumentType(getStringPayload(payload, "type")),
			Source: getStringPayload(payload, "source"),
		},
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
