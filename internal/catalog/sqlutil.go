package catalog

import "database/sql"

// nullable maps an empty string to NULL so optional text columns stay
// distinguishable from genuinely empty values in filters.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// text unwraps a nullable text column scanned into sql.NullString.
func text(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
