package mcpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

const (
	serverName    = "knou-notices"
	serverVersion = "1.0.0"
	maxLimit      = 50
)

type handlers struct {
	searcher     ports.Searcher
	dataRange    ports.DataRangeReader
	defaultLimit int
	logger       *slog.Logger
}

// NewServer exposes notice search over MCP.
func NewServer(searcher ports.Searcher, dataRange ports.DataRangeReader, defaultLimit int, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	h := &handlers{searcher: searcher, dataRange: dataRange, defaultLimit: defaultLimit, logger: logger}

	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	s.AddTool(mcp.NewTool("search_notices",
		mcp.WithDescription("한국방송통신대학교 공지사항과 학사일정을 검색합니다. Search KNOU notices and the academic calendar."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("검색 질문, 예: '2학기 등록금 납부 기간'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of chunks to return"),
			mcp.Min(1),
			mcp.Max(maxLimit),
		),
	), h.searchNotices)
	s.AddTool(mcp.NewTool("notice_date_range",
		mcp.WithDescription("Report the newest and oldest notice dates in the index."),
	), h.noticeDateRange)
	return s
}

func (h *handlers) searchNotices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	limit := req.GetInt("limit", h.defaultLimit)
	if limit <= 0 || limit > maxLimit {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", maxLimit)), nil
	}

	result, err := h.searcher.Search(ctx, query, limit)
	if errors.Is(err, domain.ErrNoResults) {
		return mcp.NewToolResultText(domain.MessageNoResults), nil
	}
	if err != nil {
		h.logger.Error("mcp_search_failed", "query", query, "error", err)
		return mcp.NewToolResultError("search failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(FormatResults(result)), nil
}

func (h *handlers) noticeDateRange(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dateRange, err := h.dataRange.DateRange(ctx)
	if errors.Is(err, domain.ErrNoResults) {
		return mcp.NewToolResultText("색인된 공지가 없습니다."), nil
	}
	if err != nil {
		h.logger.Error("mcp_date_range_failed", "error", err)
		return mcp.NewToolResultError("date range failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("최신: %s\n가장 오래된: %s\n날짜 수: %d", dateRange.Latest, dateRange.Oldest, dateRange.TotalDates)), nil
}

// FormatResults renders a result list as numbered plain-text blocks.
func FormatResults(result domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "검색 경로: %s, 결과 %d건\n", result.Path, len(result.Items))
	for i, item := range result.Items {
		meta := item.Document.Metadata
		title := meta.Title
		if title == "" {
			title = "제목 없음"
		}
		date := meta.Date
		if date == "" {
			date = "날짜 미상"
		}
		fmt.Fprintf(&b, "\n%d. [%s] %s\n", i+1, date, title)
		if meta.Source != "" {
			fmt.Fprintf(&b, "   출처: %s\n", meta.Source)
		}
		b.WriteString(indent(strings.TrimSpace(item.Document.Text), "   "))
		b.WriteString("\n")
	}
	return b.String()
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
