// Package filters turns the optional criteria of the report filter forms into
// parameterized predicates for the report stores.
package filters

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/linesmerrill/traffic-portal-api/models"
)

// DateLayout is the accepted layout of the from/to query parameters
const DateLayout = "2006-01-02"

// allSentinel is the select-box value meaning "no constraint"
const allSentinel = "all"

// Criteria is the sparse set of optional report filters. Zero values mean
// "no constraint".
type Criteria struct {
	Year       int
	Month      int
	Locality   string
	Status     models.Status
	Category   string
	Severity   models.Severity
	Kind       models.Kind
	Search     string
	ReporterID string
	AssigneeID string
	// From and To are dates (UTC midnight) compared against the date
	// component of the report timestamp, both inclusive.
	From *time.Time
	To   *time.Time
}

// IsEmpty returns true if no criterion is set
func (c Criteria) IsEmpty() bool {
	return c == Criteria{}
}

// Parse reads criteria from query parameters. Malformed values are dropped
// from the returned criteria and reported together as InvalidFilterInput
// errors, so callers may either reject the request or carry on unconstrained.
func Parse(values url.Values) (Criteria, error) {
	var c Criteria
	var errs []error

	if v := value(values, "year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 0 || y > 9999 {
			errs = append(errs, &models.FilterInputError{Field: "year", Value: v})
		} else {
			c.Year = y
		}
	}
	if v := value(values, "month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 || m > 12 {
			errs = append(errs, &models.FilterInputError{Field: "month", Value: v})
		} else {
			c.Month = m
		}
	}
	if v := value(values, "status"); v != "" {
		if s, ok := models.ParseStatus(v); ok {
			c.Status = s
		} else {
			errs = append(errs, &models.FilterInputError{Field: "status", Value: v})
		}
	}
	if v := value(values, "severity"); v != "" {
		if s, ok := models.ParseSeverity(v); ok {
			c.Severity = s
		} else {
			errs = append(errs, &models.FilterInputError{Field: "severity", Value: v})
		}
	}
	if v := value(values, "kind"); v != "" {
		if k, ok := models.ParseKind(v); ok {
			c.Kind = k
		} else {
			errs = append(errs, &models.FilterInputError{Field: "kind", Value: v})
		}
	}

	c.Locality = value(values, "locality", "barangay")
	c.Category = value(values, "category")
	c.Search = value(values, "q", "search")
	c.ReporterID = value(values, "reporter")
	c.AssigneeID = value(values, "assignee")

	from, err := parseDate(values, "from")
	if err != nil {
		errs = append(errs, err)
	}
	to, err := parseDate(values, "to")
	if err != nil {
		errs = append(errs, err)
	}
	if from != nil && to != nil && from.After(*to) {
		errs = append(errs, &models.FilterInputError{Field: "from", Value: from.Format(DateLayout)},
			&models.FilterInputError{Field: "to", Value: to.Format(DateLayout)})
		from, to = nil, nil
	}
	c.From, c.To = from, to

	return c, errors.Join(errs...)
}

// value returns the first set parameter among keys, treating "all" as unset
func value(values url.Values, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(values.Get(k))
		if v == "" || strings.EqualFold(v, allSentinel) {
			continue
		}
		return v
	}
	return ""
}

func parseDate(values url.Values, key string) (*time.Time, error) {
	v := value(values, key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		ts, err2 := time.Parse(time.RFC3339, v)
		if err2 != nil {
			return nil, &models.FilterInputError{Field: key, Value: v}
		}
		t = ts.UTC()
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

// Date returns a pointer to the UTC midnight of the given day. It is handy for
// building criteria in code.
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// reportedRange returns the half-open [start, end) window on the report
// timestamp implied by Year/Month and From/To. Either bound may be nil.
func (c Criteria) reportedRange() (start, end *time.Time) {
	if c.Year > 0 {
		s, e := yearWindow(c.Year, c.Month)
		start, end = &s, &e
	}
	if c.From != nil && (start == nil || c.From.After(*start)) {
		f := *c.From
		start = &f
	}
	if c.To != nil {
		t := c.To.AddDate(0, 0, 1)
		if end == nil || t.Before(*end) {
			end = &t
		}
	}
	return start, end
}
