package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

const defaultReferenceYear = 2025

var fullDateLayouts = []string{
	"2006-1-2",
	"2006.1.2",
	"2006/1/2",
}

// Queries are width-folded first, so full-width digits and the ideographic
// space arrive here as ASCII.
var queryDatePattern = regexp.MustCompile(`(\d{1,2})[\s\p{Zs}]*월[\s\p{Zs}]*(\d{1,2})[\s\p{Zs}]*일`)

// DateNormalizer turns metadata and query date fragments into calendar dates.
// Partial month/day forms infer the year from the clock.
type DateNormalizer struct {
	now           func() time.Time
	referenceYear int
}

func NewDateNormalizer(now func() time.Time, referenceYear int) *DateNormalizer {
	if now == nil {
		now = time.Now
	}
	if referenceYear <= 0 {
		referenceYear = defaultReferenceYear
	}
	return &DateNormalizer{now: now, referenceYear: referenceYear}
}

func (n *DateNormalizer) Today() domain.CalendarDate {
	return domain.DateOf(n.now())
}

// Parse accepts YYYY-MM-DD, YYYY.MM.DD, YYYY/MM/DD, ranges "A ~ B" (start
// only) and partial MM.DD or MM/DD forms.
func (n *DateNormalizer) Parse(raw string) (domain.CalendarDate, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return domain.CalendarDate{}, false
	}
	if start, _, found := strings.Cut(value, "~"); found {
		value = strings.TrimSpace(start)
	}

	for _, layout := range fullDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return domain.DateOf(t), true
		}
	}

	if parts := strings.Split(value, "."); len(parts) == 2 {
		return n.parsePartial(parts)
	}
	if parts := strings.Split(value, "/"); len(parts) == 2 {
		return n.parsePartial(parts)
	}
	return domain.CalendarDate{}, false
}

func (n *DateNormalizer) parsePartial(parts []string) (domain.CalendarDate, bool) {
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return domain.CalendarDate{}, false
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return domain.CalendarDate{}, false
	}
	return domain.NewCalendarDate(inferYear(month, n.now()), time.Month(month), day)
}

// inferYear assumes near-term entries: December seen in the first half of the
// year belongs to last year, January-June seen in the second half to next year.
func inferYear(month int, now time.Time) int {
	current := int(now.Month())
	switch {
	case month == 12 && current <= 6:
		return now.Year() - 1
	case month <= 6 && current >= 7:
		return now.Year() + 1
	default:
		return now.Year()
	}
}

// ExtractFromQuery finds a spoken "7월 16일" date and binds it to the
// reference year.
func (n *DateNormalizer) ExtractFromQuery(text string) (domain.CalendarDate, bool) {
	match := queryDatePattern.FindStringSubmatch(width.Fold.String(text))
	if match == nil {
		return domain.CalendarDate{}, false
	}
	month, err := strconv.Atoi(match[1])
	if err != nil {
		return domain.CalendarDate{}, false
	}
	day, err := strconv.Atoi(match[2])
	if err != nil {
		return domain.CalendarDate{}, false
	}
	return domain.NewCalendarDate(n.referenceYear, time.Month(month), day)
}
