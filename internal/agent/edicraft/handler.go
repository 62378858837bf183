// Package edicraft answers well catalog questions: which wells exist, who
// operates them and which log files are stored for them.
package edicraft

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/energy-agent/internal/agent"
	"github.com/Rrens/energy-agent/internal/catalog"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/scope"
	"github.com/Rrens/energy-agent/internal/trace"
	"github.com/rs/zerolog/log"
)

// ContentCatalogSearch is the artifact content type
const ContentCatalogSearch = "catalog_search"

// FilesPrefix is where raw well files live in the object store
const FilesPrefix = "wells/"

const (
	defaultTimeout = 10 * time.Second
	maxListedFiles = 1000
	summaryRows    = 10
)

var (
	wellIDPattern   = regexp.MustCompile(`(?i)\bwell[-_ ]?(\d+)([a-z0-9]*)\b`)
	prefixPattern   = regexp.MustCompile(`(?i)\b(?:starting|beginning)\s+with\s+["']?([\w-]+)`)
	namedPattern    = regexp.MustCompile(`(?i)\b(?:named|called)\s+["']?([\w-]+)`)
	operatorPattern = regexp.MustCompile(`(?i)\b(?:operated\s+by|operator)\s+(?:is\s+)?(?:the\s+)?([\w&.-]+)`)
	fieldPattern    = regexp.MustCompile(`(?i)\b(?:in|from|on)\s+(?:the\s+)?([\w-]+)\s+field\b`)
	fieldAfter      = regexp.MustCompile(`(?i)\bfield\s+(?:named\s+|called\s+)?["']?([A-Z][\w-]*)`)
	limitPattern    = regexp.MustCompile(`(?i)\b(?:top|first|limit)\s+(\d{1,3})\b`)
)

var tableColumns = []string{"name", "operator", "field", "basin", "status", "latitude", "longitude", "totalDepthFt"}

// SourceResolver returns the catalog source to search for one request
type SourceResolver interface {
	Source(ctx context.Context) (catalog.Source, error)
}

// Handler is the well catalog agent
type Handler struct {
	sources SourceResolver
	store   domain.ObjectStore
	timeout time.Duration
}

// New creates the handler. A nil store skips file listing; a nil resolver
// reports the catalog as not configured.
func New(sources SourceResolver, store domain.ObjectStore, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Handler{sources: sources, store: store, timeout: timeout}
}

// Handle searches the catalog and lists the stored files of each match
func (h *Handler) Handle(ctx context.Context, req agent.Request) (*agent.Result, error) {
	rec := req.Recorder
	if rec == nil {
		rec = trace.NewRecorder()
	}

	step := rec.Add(trace.TypeParameterExtraction, "Reading search criteria",
		"Looking for well names, operators, fields and result limits", nil, nil)
	filter := ParseFilter(req.Message)
	rec.Complete(step.ID, &trace.Update{
		Context: &trace.Context{WellName: filter.NamePrefix, AnalysisType: "catalog_search"},
		Details: filter,
	})

	if h.sources == nil {
		return &agent.Result{Success: false, Message: "No well catalog is configured."}, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	step = rec.Add(trace.TypeDataRetrieval, "Searching well catalog",
		fmt.Sprintf("Querying the well catalog for %s", describe(filter)), nil, nil)
	source, err := h.sources.Source(searchCtx)
	if err != nil {
		rec.Fail(step.ID, err, nil)
		log.Error().Err(err).Msg("Well catalog unavailable")
		return &agent.Result{Success: false, Message: "The well catalog is unavailable right now. Please try again later."}, nil
	}
	wells, err := source.Search(searchCtx, filter)
	if err != nil {
		rec.Fail(step.ID, err, nil)
		log.Error().Err(err).Str("driver", source.Driver()).Msg("Catalog search failed")
		return &agent.Result{Success: false, Message: "The well catalog could not be searched right now. Please try again later."}, nil
	}
	rec.Complete(step.ID, &trace.Update{RecordCount: intPtr(len(wells))})

	files := h.files(ctx, rec, wells)

	rows := make([][]any, 0, len(wells))
	for _, w := range wells {
		rows = append(rows, []any{w.Name, w.Operator, w.Field, w.Basin, w.Status, w.Latitude, w.Longitude, w.TotalDepthFt})
	}

	artifact := domain.Artifact{
		domain.ArtifactTypeKey: ContentCatalogSearch,
		"source":               source.Driver(),
		"filter":               filter,
		"columns":              tableColumns,
		"rows":                 rows,
		"total":                len(wells),
		"files":                files,
	}

	return &agent.Result{
		Success:   true,
		Message:   summarize(filter, wells, files),
		Artifacts: []domain.Artifact{artifact},
		SourceAttribution: []domain.SourceAttribution{{
			Title:   "Well catalog",
			Snippet: fmt.Sprintf("%d record(s) from the %s catalog", len(wells), source.Driver()),
		}},
	}, nil
}

// files maps each well name to the object keys stored under wells/ for it
func (h *Handler) files(ctx context.Context, rec *trace.Recorder, wells []catalog.Well) map[string][]string {
	files := map[string][]string{}
	if h.store == nil || len(wells) == 0 {
		return files
	}

	step := rec.Add(trace.TypeDataRetrieval, "Listing stored well files",
		"Matching object storage keys to catalog wells", &trace.Context{S3Key: FilesPrefix}, nil)
	objects, err := h.store.List(ctx, FilesPrefix, maxListedFiles)
	if err != nil {
		rec.Fail(step.ID, err, nil)
		log.Warn().Err(err).Msg("Failed to list well files")
		return files
	}

	byName := make(map[string]string, len(wells))
	for _, w := range wells {
		byName[scope.Normalize(w.Name)] = w.Name
	}

	matched := 0
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, FilesPrefix)
		dir, base, _ := strings.Cut(rel, "/")
		if base == "" {
			dir = strings.TrimSuffix(dir, path.Ext(dir))
		}
		if name, ok := byName[scope.Normalize(dir)]; ok {
			files[name] = append(files[name], obj.Key)
			matched++
		}
	}
	for name := range files {
		sort.Strings(files[name])
	}

	rec.Complete(step.ID, &trace.Update{RecordCount: &matched})
	return files
}

// ParseFilter extracts catalog search criteria from a chat message
func ParseFilter(message string) catalog.Filter {
	var f catalog.Filter

	switch {
	case prefixPattern.MatchString(message):
		f.NamePrefix = prefixPattern.FindStringSubmatch(message)[1]
	case namedPattern.MatchString(message):
		f.NamePrefix = namedPattern.FindStringSubmatch(message)[1]
	case wellIDPattern.MatchString(message):
		m := wellIDPattern.FindStringSubmatch(message)
		f.NamePrefix = "WELL-" + m[1] + strings.ToUpper(m[2])
	}

	if m := operatorPattern.FindStringSubmatch(message); m != nil {
		f.Operator = strings.TrimRight(m[1], ".")
	}
	if m := fieldPattern.FindStringSubmatch(message); m != nil {
		f.Field = m[1]
	} else if m := fieldAfter.FindStringSubmatch(message); m != nil {
		f.Field = m[1]
	}
	if m := limitPattern.FindStringSubmatch(message); m != nil {
		f.Limit, _ = strconv.Atoi(m[1])
	}
	return f
}

func describe(f catalog.Filter) string {
	var parts []string
	if f.NamePrefix != "" {
		parts = append(parts, fmt.Sprintf("name starting with %q", f.NamePrefix))
	}
	if f.Operator != "" {
		parts = append(parts, fmt.Sprintf("operator %q", f.Operator))
	}
	if f.Field != "" {
		parts = append(parts, fmt.Sprintf("field %q", f.Field))
	}
	if len(parts) == 0 {
		return "all wells"
	}
	return strings.Join(parts, " and ")
}

func summarize(f catalog.Filter, wells []catalog.Well, files map[string][]string) string {
	if len(wells) == 0 {
		return fmt.Sprintf("No wells matched %s.", describe(f))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d well(s) matching %s:", len(wells), describe(f))
	for i, w := range wells {
		if i == summaryRows {
			fmt.Fprintf(&b, "\n… and %d more", len(wells)-summaryRows)
			break
		}
		fmt.Fprintf(&b, "\n- %s (%s, %s field", w.Name, w.Operator, w.Field)
		if w.TotalDepthFt > 0 {
			fmt.Fprintf(&b, ", TD %.0f ft", w.TotalDepthFt)
		}
		if n := len(files[w.Name]); n > 0 {
			fmt.Fprintf(&b, ", %d stored file(s)", n)
		}
		b.WriteString(")")
	}
	return b.String()
}

func intPtr(v int) *int { return &v }
