package storage

import (
	"strings"
)

// BuildPredicate turns a loosely-typed field/value bag into a parameterized
// SQL filter clause. Only fields named in allowed are honored; unknown keys
// are ignored so request-shaped bags with extra fields are safe to pass.
// Fields combine with AND, in allowed-list order so the clause is
// deterministic. A key mapped to nil matches IS NULL; an absent key emits no
// predicate at all. Values are always bound positionally, never interpolated
// into the clause text. An empty bag yields a clause matching all rows.
func BuildPredicate(params map[string]interface{}, allowed []string) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	for _, field := range allowed {
		value, ok := params[field]
		if !ok {
			continue
		}
		if value == nil {
			clauses = append(clauses, field+" IS NULL")
			continue
		}
		clauses = append(clauses, field+" = ?")
		args = append(args, value)
	}

	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}
