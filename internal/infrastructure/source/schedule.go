package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/resilience"
)

const DefaultScheduleURL = "https://www.knou.ac.kr/schdulmanage/knou/26/monthSchdul.do"

// ScheduleFetcher downloads the monthly academic calendar.
type ScheduleFetcher struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewScheduleFetcher(scheduleURL string, requestsPerSecond float64, httpClient *http.Client) *ScheduleFetcher {
	if scheduleURL == "" {
		scheduleURL = DefaultScheduleURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ScheduleFetcher{
		url:        scheduleURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// FetchYear collects the schedule rows of all twelve months in order.
func (f *ScheduleFetcher) FetchYear(ctx context.Context, year int) ([]domain.SourceRecord, error) {
	var out []domain.SourceRecord
	for month := 1; month <= 12; month++ {
		rows, err := f.FetchMonth(ctx, year, month)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	for i := range out {
		out[i].ID = strconv.Itoa(i + 1)
	}
	return out, nil
}

func (f *ScheduleFetcher) FetchMonth(ctx context.Context, year, month int) ([]domain.SourceRecord, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("year", strconv.Itoa(year))
	form.Set("month", fmt.Sprintf("%02d", month))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create schedule request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, resilience.WrapTemporary("schedule.fetch", fmt.Errorf("fetch schedule %d-%02d: %w", year, month, err), nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resilience.WrapTemporary("schedule.fetch", resilience.NewHTTPStatusError("schedule", "fetch", resp), nil)
	}

	records, err := ParseSchedule(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %d-%02d: %w", year, month, err)
	}
	return records, nil
}

// ParseSchedule reads the rows of the ".sche-comt" table: the header cell is
// the date text, the data cell the event.
func ParseSchedule(r io.Reader) ([]domain.SourceRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []domain.SourceRecord
	for _, table := range findAll(doc, func(n *html.Node) bool { return hasClass(n, "sche-comt") }) {
		for _, body := range findAll(table, isElement(atom.Tbody)) {
			for _, row := range findAll(body, isElement(atom.Tr)) {
				th := findFirst(row, isElement(atom.Th))
				td := findFirst(row, isElement(atom.Td))
				if th == nil || td == nil {
					continue
				}
				out = append(out, domain.SourceRecord{
					Type:    domain.TypeSchedule,
					Date:    strings.TrimSpace(textOf(th)),
					Content: strings.ReplaceAll(strings.TrimSpace(textOf(td)), "\n", " "),
				})
			}
		}
	}
	return out, nil
}

// WriteScheduleCSV writes the id,date,content export consumed by CSVLoader.
func WriteScheduleCSV(w io.Writer, records []domain.SourceRecord) error {
	if _, err := io.WriteString(w, byteOrderMark); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "date", "content"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, record := range records {
		id := record.ID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		if err := writer.Write([]string{id, record.Date, record.Content}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, name := range strings.Fields(attr.Val) {
			if name == class {
				return true
			}
		}
	}
	return false
}

// findAll returns matching descendants of n in document order. Matches are
// not searched further.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, match)...)
	}
	return out
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
