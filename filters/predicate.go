package filters

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Predicate is a conjunction of SQL clauses using ? placeholders, with the
// arguments in placeholder order.
type Predicate struct {
	Clauses []string
	Args    []interface{}
}

// Empty returns true if the predicate does not constrain anything
func (p Predicate) Empty() bool {
	return len(p.Clauses) == 0
}

// Where returns the clauses joined with AND, or "" for the empty predicate
func (p Predicate) Where() string {
	return strings.Join(p.Clauses, " AND ")
}

func (p *Predicate) add(clause string, args ...interface{}) {
	p.Clauses = append(p.Clauses, clause)
	p.Args = append(p.Args, args...)
}

// searchColumns are matched by the free-text search, OR-ed together
var searchColumns = []string{"code", "location", "description"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Predicate builds the SQL predicate. Clause order is fixed so the same
// criteria always produce the same predicate.
func (c Criteria) Predicate() Predicate {
	var p Predicate
	if c.Kind != "" {
		p.add("kind = ?", string(c.Kind))
	}
	if c.Year > 0 {
		start, end := yearWindow(c.Year, c.Month)
		p.add("reported_at >= ?", start)
		p.add("reported_at < ?", end)
	} else if c.Month > 0 {
		p.add("MONTH(reported_at) = ?", c.Month)
	}
	if c.Locality != "" {
		p.add("locality = ?", c.Locality)
	}
	if c.Status != "" {
		p.add("status = ?", string(c.Status))
	}
	if c.Category != "" {
		p.add("category = ?", c.Category)
	}
	if c.Severity != "" {
		p.add("severity = ?", string(c.Severity))
	}
	if c.ReporterID != "" {
		p.add("reporter_id = ?", c.ReporterID)
	}
	if c.AssigneeID != "" {
		p.add("assignee_id = ?", c.AssigneeID)
	}
	if c.From != nil {
		p.add("DATE(reported_at) >= ?", c.From.Format(DateLayout))
	}
	if c.To != nil {
		p.add("DATE(reported_at) <= ?", c.To.Format(DateLayout))
	}
	if c.Search != "" {
		term := "%" + likeEscaper.Replace(strings.ToLower(c.Search)) + "%"
		ors := make([]string, len(searchColumns))
		args := make([]interface{}, len(searchColumns))
		for i, col := range searchColumns {
			ors[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = term
		}
		p.add("("+strings.Join(ors, " OR ")+")", args...)
	}
	return p
}

func yearWindow(year, month int) (time.Time, time.Time) {
	if month > 0 {
		s := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return s, s.AddDate(0, 1, 0)
	}
	s := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return s, s.AddDate(1, 0, 0)
}

// BSON builds the equivalent mongo filter. An empty criteria yields an empty
// document, which matches every report.
func (c Criteria) BSON() bson.M {
	filter := bson.M{}
	if c.Kind != "" {
		filter["kind"] = string(c.Kind)
	}
	if c.Locality != "" {
		filter["locality"] = c.Locality
	}
	if c.Status != "" {
		filter["status"] = string(c.Status)
	}
	if c.Category != "" {
		filter["category"] = c.Category
	}
	if c.Severity != "" {
		filter["severity"] = string(c.Severity)
	}
	if c.ReporterID != "" {
		filter["reporterId"] = c.ReporterID
	}
	if c.AssigneeID != "" {
		filter["assigneeId"] = c.AssigneeID
	}

	start, end := c.reportedRange()
	if start != nil || end != nil {
		r := bson.M{}
		if start != nil {
			r["$gte"] = *start
		}
		if end != nil {
			r["$lt"] = *end
		}
		filter["reportedAt"] = r
	}
	if c.Year == 0 && c.Month > 0 {
		filter["$expr"] = bson.M{"$eq": bson.A{bson.M{"$month": "$reportedAt"}, c.Month}}
	}

	if c.Search != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(c.Search), "$options": "i"}
		ors := bson.A{}
		for _, f := range []string{"code", "location", "description"} {
			ors = append(ors, bson.M{f: re})
		}
		filter["$or"] = ors
	}
	return filter
}
