package filters_test

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

func TestParse_EmptyValuesYieldUnconstrainedPredicate(t *testing.T) {
	c, err := filters.Parse(url.Values{
		"year":     {"0"},
		"month":    {"0"},
		"locality": {""},
		"status":   {"all"},
		"category": {"ALL"},
		"q":        {"   "},
	})
	require.NoError(t, err)

	assert.True(t, c.IsEmpty())
	p := c.Predicate()
	assert.True(t, p.Empty())
	assert.Equal(t, "", p.Where())
	assert.Empty(t, p.Args)
	assert.Equal(t, bson.M{}, c.BSON())
}

func TestParse_YearOnlyLeavesMonthUnconstrained(t *testing.T) {
	c, err := filters.Parse(url.Values{"year": {"2025"}, "month": {"0"}, "locality": {""}, "status": {""}})
	require.NoError(t, err)

	p := c.Predicate()
	assert.Equal(t, "reported_at >= ? AND reported_at < ?", p.Where())
	assert.Equal(t, []interface{}{
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}, p.Args)
}

func TestCriteria_PredicateIsDeterministic(t *testing.T) {
	v := url.Values{
		"year":     {"2025"},
		"month":    {"3"},
		"barangay": {"San Roque"},
		"status":   {"in_progress"},
		"category": {"Pothole"},
		"severity": {"high"},
		"kind":     {"road_condition"},
		"q":        {"Rizal"},
		"from":     {"2025-03-02"},
		"to":       {"2025-03-20"},
	}
	c1, err := filters.Parse(v)
	require.NoError(t, err)
	c2, err := filters.Parse(v)
	require.NoError(t, err)

	assert.Equal(t, c1.Predicate(), c2.Predicate())
	assert.Equal(t, c1.Predicate(), c1.Predicate())

	p := c1.Predicate()
	assert.Equal(t, "kind = ? AND reported_at >= ? AND reported_at < ? AND locality = ? AND status = ? AND "+
		"category = ? AND severity = ? AND DATE(reported_at) >= ? AND DATE(reported_at) <= ? AND "+
		"(LOWER(code) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?)", p.Where())
	assert.Equal(t, []interface{}{
		"road_condition",
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		"San Roque", "In Progress", "Pothole", "High",
		"2025-03-02", "2025-03-20",
		"%rizal%", "%rizal%", "%rizal%",
	}, p.Args)
}

func TestParse_MalformedValuesAreDroppedAndReported(t *testing.T) {
	c, err := filters.Parse(url.Values{
		"year":     {"20x5"},
		"month":    {"13"},
		"status":   {"Closed"},
		"severity": {"critical"},
		"from":     {"2025-02-30"},
		"locality": {"Poblacion"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidFilterInput))

	var fe *models.FilterInputError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "year", fe.Field)

	assert.Equal(t, filters.Criteria{Locality: "Poblacion"}, c)
	assert.Equal(t, "locality = ?", c.Predicate().Where())
}

func TestParse_InvertedDateRangeIsDropped(t *testing.T) {
	c, err := filters.Parse(url.Values{"from": {"2025-05-10"}, "to": {"2025-05-01"}})
	assert.True(t, errors.Is(err, models.ErrInvalidFilterInput))
	assert.Nil(t, c.From)
	assert.Nil(t, c.To)
}

func TestParse_OpenEndedDateRange(t *testing.T) {
	c, err := filters.Parse(url.Values{"from": {"2025-05-10"}})
	require.NoError(t, err)

	p := c.Predicate()
	assert.Equal(t, "DATE(reported_at) >= ?", p.Where())
	assert.Equal(t, []interface{}{"2025-05-10"}, p.Args)

	assert.Equal(t, bson.M{"reportedAt": bson.M{"$gte": time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)}}, c.BSON())
}

func TestCriteria_SearchEscapesWildcards(t *testing.T) {
	c := filters.Criteria{Search: `50%_off\`}
	p := c.Predicate()
	assert.Equal(t, `%50\%\_off\\%`, p.Args[0])

	f := c.BSON()
	ors := f["$or"].(bson.A)
	assert.Len(t, ors, 3)
	assert.Equal(t, bson.M{"code": bson.M{"$regex": `50%_off\\`, "$options": "i"}}, ors[0])
}

func TestCriteria_MonthWithoutYear(t *testing.T) {
	c := filters.Criteria{Month: 7}
	p := c.Predicate()
	assert.Equal(t, "MONTH(reported_at) = ?", p.Where())
	assert.Equal(t, []interface{}{7}, p.Args)

	f := c.BSON()
	assert.NotContains(t, f, "reportedAt")
	assert.Contains(t, f, "$expr")
}

func TestCriteria_BSONNarrowsYearWithDateRange(t *testing.T) {
	c := filters.Criteria{Year: 2025, From: filters.Date(2025, time.June, 5), To: filters.Date(2026, time.February, 1)}
	assert.Equal(t, bson.M{"reportedAt": bson.M{
		"$gte": time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC),
		"$lt":  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}}, c.BSON())
}

// selectByPredicate keeps the timestamps the reported_at clauses of p accept,
// the way MySQL evaluates them on a UTC session
func selectByPredicate(t *testing.T, p filters.Predicate, stamps []time.Time) []time.Time {
	var out []time.Time
	for _, ts := range stamps {
		day := ts.UTC().Format(filters.DateLayout)
		ok := true
		for i, clause := range p.Clauses {
			switch clause {
			case "reported_at >= ?":
				ok = ok && !ts.Before(p.Args[i].(time.Time))
			case "reported_at < ?":
				ok = ok && ts.Before(p.Args[i].(time.Time))
			case "DATE(reported_at) >= ?":
				ok = ok && day >= p.Args[i].(string)
			case "DATE(reported_at) <= ?":
				ok = ok && day <= p.Args[i].(string)
			default:
				t.Fatalf("unexpected clause %q", clause)
			}
		}
		if ok {
			out = append(out, ts)
		}
	}
	return out
}

// selectByBSON keeps the timestamps inside the reportedAt range of f
func selectByBSON(f bson.M, stamps []time.Time) []time.Time {
	r, _ := f["reportedAt"].(bson.M)
	var out []time.Time
	for _, ts := range stamps {
		if gte, ok := r["$gte"].(time.Time); ok && ts.Before(gte) {
			continue
		}
		if lt, ok := r["$lt"].(time.Time); ok && !ts.Before(lt) {
			continue
		}
		out = append(out, ts)
	}
	return out
}

func TestCriteria_YearFilterOverMixedCollection(t *testing.T) {
	stamps := []time.Time{
		time.Date(2024, time.February, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.July, 14, 12, 0, 0, 0, time.UTC),
		time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	want := stamps[2:5]

	c, err := filters.Parse(url.Values{"year": {"2025"}, "month": {"0"}, "locality": {""}, "status": {""}})
	require.NoError(t, err)
	assert.Equal(t, want, selectByPredicate(t, c.Predicate(), stamps))
	assert.Equal(t, want, selectByBSON(c.BSON(), stamps))
}

func TestCriteria_ToIncludesTheWholeLastDay(t *testing.T) {
	stamps := []time.Time{
		time.Date(2025, time.May, 9, 23, 59, 59, 0, time.UTC),
		time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.May, 20, 23, 59, 59, 0, time.UTC),
		time.Date(2025, time.May, 21, 0, 0, 0, 0, time.UTC),
	}
	want := stamps[1:4]

	c, err := filters.Parse(url.Values{"from": {"2025-05-10"}, "to": {"2025-05-20"}})
	require.NoError(t, err)
	assert.Equal(t, want, selectByPredicate(t, c.Predicate(), stamps))
	assert.Equal(t, want, selectByBSON(c.BSON(), stamps))
}
