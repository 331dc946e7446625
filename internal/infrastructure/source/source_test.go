package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestCSVLoaderNotices(t *testing.T) {
	path := writeFile(t, "notices_2025.csv", "\ufeffid,title,date,content,url\n"+
		"7,등록금 납부 안내,2025-07-18,\"납부 기간은\n8월입니다\",https://knou.ac.kr/n/7\n"+
		",,,,\n")

	records, err := CSVLoader{}.Load(context.Background(), path, domain.TypeNotice)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	want := domain.SourceRecord{
		ID:      "7",
		Type:    domain.TypeNotice,
		Title:   "등록금 납부 안내",
		Date:    "2025-07-18",
		Content: "납부 기간은\n8월입니다",
		URL:     "https://knou.ac.kr/n/7",
	}
	if records[0] != want {
		t.Fatalf("expected %+v, got %+v", want, records[0])
	}
}

func TestCSVLoaderScheduleNeedsOnlyDateAndContent(t *testing.T) {
	path := writeFile(t, "common_schedule.csv", "id,date,content\n1,2025.03.02 ~ 2025.03.06,수강신청\n")

	records, err := CSVLoader{}.Load(context.Background(), path, domain.TypeSchedule)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 || records[0].Title != "" || records[0].Content != "수강신청" {
		t.Fatalf("unexpected records %+v", records)
	}

	_, err = CSVLoader{}.Load(context.Background(), path, domain.TypeNotice)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing title column, got %v", err)
	}
}

func TestXLSXLoaderReadsFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"title", "date", "content", "url"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"전공 안내", "2025-07-01", "본문", "https://cs.knou.ac.kr/1"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "cs_notices.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	_ = f.Close()

	records, err := XLSXLoader{}.Load(context.Background(), path, domain.TypeDepartmentNotice)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 || records[0].Title != "전공 안내" || records[0].ID != "1" || records[0].Type != domain.TypeDepartmentNotice {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestForPath(t *testing.T) {
	cases := map[string]any{
		"a.csv":  CSVLoader{},
		"b.XLSX": XLSXLoader{},
		"c.pdf":  PDFLoader{},
		"d.txt":  TextLoader{},
	}
	for path, want := range cases {
		got, err := ForPath(path)
		if err != nil {
			t.Fatalf("ForPath(%q) error = %v", path, err)
		}
		if got != want {
			t.Fatalf("ForPath(%q) = %T, expected %T", path, got, want)
		}
	}
	if _, err := ForPath("notes.docx"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPDFLoaderMissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), domain.TypeNotice)
	if err == nil {
		t.Fatalf("expected error for missing pdf")
	}
}

func TestWriteScheduleCSVRoundTripsThroughLoader(t *testing.T) {
	var buf bytes.Buffer
	err := WriteScheduleCSV(&buf, []domain.SourceRecord{
		{Date: "2025.03.02 ~ 2025.03.06", Content: "수강신청, 정정"},
		{Date: "2025.08.18", Content: "2학기 등록"},
	})
	if err != nil {
		t.Fatalf("WriteScheduleCSV() error = %v", err)
	}
	path := writeFile(t, "schedule.csv", buf.String())

	records, err := CSVLoader{}.Load(context.Background(), path, domain.TypeSchedule)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 || records[0].ID != "1" || records[0].Content != "수강신청, 정정" || records[1].Date != "2025.08.18" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestTextLoader(t *testing.T) {
	path := writeFile(t, "휴학 안내.txt", "  휴학 신청은 포털에서  \n")
	records, err := TextLoader{}.Load(context.Background(), path, domain.TypeNotice)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 || records[0].Title != "휴학 안내" || records[0].Content != "휴학 신청은 포털에서" {
		t.Fatalf("unexpected records %+v", records)
	}

	binary := writeFile(t, "blob.txt", string([]byte{0xff, 0xfe, 0x00}))
	if _, err := (TextLoader{}).Load(context.Background(), binary, domain.TypeNotice); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for binary file, got %v", err)
	}
}
