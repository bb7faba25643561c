package core

import (
	"strings"
)

// DBOrdering is one "ORDER BY" term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingClause renders orderings whose field is listed in allowed (api name -> column).
// Unknown fields are dropped. fallback is used when nothing remains.
func OrderingClause(ordering []DBOrdering, allowed map[string]string, fallback string) string {
	terms := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		terms = append(terms, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(terms) == 0 {
		return fallback
	}
	return strings.Join(terms, ", ")
}
