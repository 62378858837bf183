package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)

// ValidateIdentifier rejects table names that are not plain (optionally
// schema-qualified) identifiers. Table names are interpolated into SQL.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %q", name)
	}
	return nil
}

// Placeholder renders the n-th (1-based) bind parameter
type Placeholder func(n int) string

// DollarPlaceholder renders $1, $2, ... (postgres)
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// QuestionPlaceholder renders ? (mysql, sqlite)
func QuestionPlaceholder(int) string { return "?" }

const searchColumns = `id, name, operator, field, COALESCE(basin, ''), COALESCE(status, ''),
	COALESCE(latitude, 0), COALESCE(longitude, 0), COALESCE(total_depth_ft, 0)`

// BuildSearch renders a parameterized, read-only search over table
func BuildSearch(table string, f Filter, limit int, ph Placeholder) (string, []any, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", nil, err
	}

	var (
		where []string
		args  []any
	)
	add := func(clause, value string) {
		args = append(args, strings.ToLower(value))
		where = append(where, fmt.Sprintf(clause, ph(len(args))))
	}

	if f.NamePrefix != "" {
		add("LOWER(name) LIKE %s", escapeLike(f.NamePrefix)+"%")
	}
	if f.Operator != "" {
		add("LOWER(operator) = %s", f.Operator)
	}
	if f.Field != "" {
		add("LOWER(field) = %s", f.Field)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", searchColumns, table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY name LIMIT %d", limit)
	return b.String(), args, nil
}

// escapeLike drops LIKE wildcards from user input
func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
