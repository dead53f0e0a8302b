package search

import (
	"strings"

	"lightbnb/server/internal/database"
)

// predicate is one AND-composed condition. Its clause marks each argument
// with '?'; markers are numbered when the query is rendered.
type predicate struct {
	clause string
	args   []interface{}
}

func cityContains(city string) predicate {
	return predicate{clause: "UPPER(properties.city) LIKE UPPER(?)", args: []interface{}{"%" + city + "%"}}
}

func ownerIs(ownerID int64) predicate {
	return predicate{clause: "properties.owner_id = ?", args: []interface{}{ownerID}}
}

func costAtLeast(cents int64) predicate {
	return predicate{clause: "properties.cost_per_night >= ?", args: []interface{}{cents}}
}

func costAtMost(cents int64) predicate {
	return predicate{clause: "properties.cost_per_night <= ?", args: []interface{}{cents}}
}

func averageRatingAtLeast(rating float64) predicate {
	return predicate{clause: "AVG(property_reviews.rating) >= ?", args: []interface{}{rating}}
}

// Query is a property search before rendering: row predicates applied
// before grouping and aggregate predicates applied to the groups.
type Query struct {
	includeUnreviewed bool
	where             []predicate
	having            []predicate
	limit             int
}

// Build translates criteria into a Query. Row predicates keep the order
// city, owner, minimum cost, maximum cost.
func Build(c Criteria, limit int, includeUnreviewed bool) Query {
	q := Query{includeUnreviewed: includeUnreviewed, limit: limit}

	if c.City != "" {
		q.where = append(q.where, cityContains(c.City))
	}
	if c.OwnerID != 0 {
		q.where = append(q.where, ownerIs(c.OwnerID))
	}
	if c.MinimumPricePerNight != 0 {
		q.where = append(q.where, costAtLeast(toCents(c.MinimumPricePerNight)))
	}
	if c.MaximumPricePerNight != 0 {
		q.where = append(q.where, costAtMost(toCents(c.MaximumPricePerNight)))
	}
	if c.MinimumRating != 0 {
		q.having = append(q.having, averageRatingAtLeast(c.MinimumRating))
	}
	return q
}

// Render produces the statement and its positional arguments. placeholder
// returns the marker for the n-th argument (1-based).
func (q Query) Render(placeholder func(n int) string) (string, []interface{}) {
	var b strings.Builder
	var args []interface{}

	write := func(p predicate) {
		parts := strings.Split(p.clause, "?")
		for i, part := range parts {
			b.WriteString(part)
			if i < len(parts)-1 {
				args = append(args, p.args[i])
				b.WriteString(placeholder(len(args)))
			}
		}
	}
	writeAll := func(keyword string, preds []predicate) {
		if len(preds) == 0 {
			return
		}
		b.WriteString("\n" + keyword + " ")
		for i, p := range preds {
			if i > 0 {
				b.WriteString("\nAND ")
			}
			write(p)
		}
	}

	join := "JOIN"
	if q.includeUnreviewed {
		join = "LEFT JOIN"
	}

	b.WriteString("SELECT " + strings.TrimSpace(database.PropertyColumns) + ",\n")
	b.WriteString("AVG(property_reviews.rating) AS average_rating\n")
	b.WriteString("FROM properties\n")
	b.WriteString(join + " property_reviews ON property_reviews.property_id = properties.id")
	writeAll("WHERE", q.where)
	b.WriteString("\nGROUP BY properties.id")
	writeAll("HAVING", q.having)
	b.WriteString("\nORDER BY properties.cost_per_night, properties.id")

	args = append(args, q.limit)
	b.WriteString("\nLIMIT " + placeholder(len(args)))

	return b.String(), args
}
