package persistence

import (
	"strings"
)

// sortColumns whitelists the columns a listing may be ordered by. Client
// input reaches ORDER BY only when it names one of them.
type sortColumns map[string]bool

var loanSortColumns = sortColumns{
	"created_at":       true,
	"updated_at":       true,
	"status":           true,
	"borrower_type":    true,
	"borrower_name":    true,
	"amount_requested": true,
	"amount_approved":  true,
	"disbursed_at":     true,
}

// orderBy renders "<alias>.<column> <ASC|DESC>". Unknown columns fall back
// to fallback and anything but asc sorts descending.
func (s sortColumns) orderBy(alias, field, dir, fallback string) string {
	column := strings.ToLower(strings.TrimSpace(field))
	if !s[column] {
		column = fallback
	}
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		direction = "ASC"
	}
	if alias != "" {
		column = alias + "." + column
	}
	return column + " " + direction
}
