package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

const (
	untitledFallback = "제목 없음"
	undatedFallback  = "날짜 미상"
	contextSeparator = "\n\n---\n\n"
)

func formatKoreanDate(d domain.CalendarDate) string {
	return fmt.Sprintf("%04d년 %02d월 %02d일", d.Year, int(d.Month), d.Day)
}

func buildAnswerContext(docs []domain.Document) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		title := strings.TrimSpace(doc.Metadata.Title)
		if title == "" {
			title = untitledFallback
		}
		date := strings.TrimSpace(doc.Metadata.Date)
		if date == "" {
			date = undatedFallback
		}
		parts = append(parts, fmt.Sprintf("문서 제목: %s\n문서 날짜: %s\n문서 내용:\n%s", title, date, doc.Text))
	}
	return strings.Join(parts, contextSeparator)
}

// BuildAnswerPrompt renders the markdown answer prompt over the retrieved
// documents.
func BuildAnswerPrompt(question string, docs []domain.Document, today domain.CalendarDate) string {
	return fmt.Sprintf(`당신은 한국방송통신대학교(KNOU)의 정보를 가장 가독성 좋게 요약하는 AI 전문가입니다. **반드시 마크다운(Markdown)을 사용**하여, 핵심을 먼저 보여주고 세부 정보를 명확하게 구분하여 사용자가 쉽게 이해하도록 답변을 구성해주세요.

**중요: 오늘은 %s입니다. 이 날짜를 기준으로 최신성과 관련성을 판단해주세요.**

**답변 생성 규칙 (Markdown 사용):**

1.  **🎯 핵심 요약 (맨 처음에):**
    *   사용자 질문에 대한 가장 중요한 답변을 **굵은 글씨**와 함께 1~2문장으로 요약하여 가장 먼저 보여주세요.
    *   관련 공지 날짜를 반드시 언급해주세요.
    *   최신 공지를 요청받은 경우, 오늘 날짜 기준으로 가장 최근 공지들을 날짜순으로 나열해주세요.

2.  **🔖 주요 정보 (섹션으로 구분):**
    *   `+"`###`"+` (h3)와 이모지를 사용하여 주요 정보 섹션을 나누세요.
    *   내용은 `+"`*`"+`를 사용한 목록(list)으로 간결하게 설명하세요.
    *   표(Table)는 마크다운 표 문법을 사용하여 간결하게 만드세요.

3.  **⭐ 강조:**
    *   가장 중요한 정보는 `+"`**굵게**`"+` 표시하여 강조하세요.

4.  **친절한 말투:**
    *   전체적으로 친근하고 명확한 말투를 사용하세요.

5.  **정보의 정확성:**
    *   제공된 **참고 문서** 내용만을 바탕으로 답변해야 합니다. 없는 내용은 "정보를 찾을 수 없습니다"라고 명확히 말해주세요.

---

**사용자 질문:** %s

**참고 문서:**
%s

**답변 (Markdown 형식):**
`, formatKoreanDate(today), question, buildAnswerContext(docs))
}
