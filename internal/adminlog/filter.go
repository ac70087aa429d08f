package adminlog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kariyerai/backend/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter selects audit entries. Zero values mean "no constraint".
type Filter struct {
	Action     models.AdminAction
	TargetType models.TargetType
	From       *time.Time
	To         *time.Time
	Query      string // substring match over the serialized details
	Page       int
	PageSize   int
}

// Offset returns the row offset for the page.
func (f Filter) Offset() int { return (f.Page - 1) * f.PageSize }

// ParseFilter reads a filter from query parameters. Dates accept RFC 3339 or YYYY-MM-DD;
// a date-only "to" covers the whole day.
func ParseFilter(v url.Values) (Filter, error) {
	f := Filter{Page: 1, PageSize: DefaultPageSize}
	if a := strings.ToUpper(strings.TrimSpace(v.Get("action"))); a != "" {
		f.Action = models.AdminAction(a)
		if !f.Action.Valid() {
			return f, fmt.Errorf("invalid action %q", a)
		}
	}
	if t := strings.ToUpper(strings.TrimSpace(v.Get("targetType"))); t != "" {
		f.TargetType = models.TargetType(t)
	}
	if s := v.Get("from"); s != "" {
		t, _, err := parseTime(s)
		if err != nil {
			return f, fmt.Errorf("invalid from: %w", err)
		}
		f.From = &t
	}
	if s := v.Get("to"); s != "" {
		t, dateOnly, err := parseTime(s)
		if err != nil {
			return f, fmt.Errorf("invalid to: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}
	f.Query = strings.TrimSpace(v.Get("q"))
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid page %q", s)
		}
		f.Page = n
	}
	if s := v.Get("pageSize"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid pageSize %q", s)
		}
		if n > MaxPageSize {
			n = MaxPageSize
		}
		f.PageSize = n
	}
	return f, nil
}

func parseTime(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// where renders the filter as a SQL predicate with positional arguments.
func (f Filter) where() (string, []interface{}) {
	clause := " WHERE 1=1"
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		clause += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.TargetType != "" {
		add("target_type = $%d", string(f.TargetType))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if f.Query != "" {
		add("details::text ILIKE $%d", "%"+escapeLike(f.Query)+"%")
	}
	return clause, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// matches applies the filter predicate in memory.
func (f Filter) matches(e *models.AdminLog) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.TargetType != "" && e.TargetType != f.TargetType {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(string(e.Details)), strings.ToLower(f.Query)) {
		return false
	}
	return true
}
