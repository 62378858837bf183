// Package scope flags chat queries that reach outside the collection a
// session is linked to.
package scope

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Rrens/energy-agent/internal/domain"
)

const (
	// DefaultEntityPattern matches well identifiers such as "WELL-001" or "well 12"
	DefaultEntityPattern = `(?i)\bwell[-_ ]?\d+[a-z0-9]*\b`
	DefaultPreviewLimit  = 5
)

// Result is the outcome of a scope check
type Result struct {
	RequiresApproval bool     `json:"requiresApproval"`
	OutOfScopeItems  []string `json:"outOfScopeItems"`
	Message          string   `json:"message,omitempty"`
}

// Guard checks query text against a session's collection context
type Guard struct {
	entity       *regexp.Regexp
	previewLimit int
}

// NewGuard compiles the entity pattern. Empty values fall back to the defaults.
func NewGuard(entityPattern string, previewLimit int) (*Guard, error) {
	if entityPattern == "" {
		entityPattern = DefaultEntityPattern
	}
	re, err := regexp.Compile(entityPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid entity pattern: %w", err)
	}
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}
	return &Guard{entity: re, previewLimit: previewLimit}, nil
}

// Check reports the entities in query that the collection does not permit.
// Sessions without a collection context are unrestricted.
func (g *Guard) Check(query string, cc *domain.CollectionContext) Result {
	if cc == nil || len(cc.DataItems) == 0 {
		return Result{OutOfScopeItems: []string{}}
	}

	permitted := make(map[string]struct{}, len(cc.DataItems)*2)
	for _, item := range cc.DataItems {
		if id := Normalize(item.ID); id != "" {
			permitted[id] = struct{}{}
		}
		if name := Normalize(item.Name); name != "" {
			permitted[name] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	outside := []string{}
	for _, ref := range g.entity.FindAllString(query, -1) {
		n := Normalize(ref)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := permitted[n]; !ok {
			outside = append(outside, n)
		}
	}

	if len(outside) == 0 {
		return Result{OutOfScopeItems: outside}
	}
	return Result{
		RequiresApproval: true,
		OutOfScopeItems:  outside,
		Message:          g.approvalMessage(cc, outside),
	}
}

func (g *Guard) approvalMessage(cc *domain.CollectionContext, outside []string) string {
	preview := outside
	if len(preview) > g.previewLimit {
		preview = preview[:g.previewLimit]
	}

	name := cc.Name
	if name == "" {
		name = cc.CollectionID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your query references %d item(s) outside the %q collection: %s",
		len(outside), name, strings.Join(preview, ", "))
	if extra := len(outside) - len(preview); extra > 0 {
		fmt.Fprintf(&b, " and %d more", extra)
	}
	b.WriteString(". Reply \"approve\" to allow access to data beyond this collection for the rest of the session.")
	return b.String()
}

var separators = strings.NewReplacer("-", "", "_", "", " ", "", "\t", "")

// Normalize lowercases an identifier and strips separators
func Normalize(s string) string {
	return separators.Replace(strings.ToLower(strings.TrimSpace(s)))
}

var approvalPhrases = map[string]struct{}{
	"approve":                 {},
	"approved":                {},
	"i approve":               {},
	"yes approve":             {},
	"approve access":          {},
	"approve expanded access": {},
	"yes i approve":           {},
}

// IsApproval reports whether message is an approval reply to a flagged query
func IsApproval(message string) bool {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	_, ok := approvalPhrases[strings.Join(fields, " ")]
	return ok
}
