// Package petrophysics answers porosity, shale volume and water saturation
// questions from well log readings.
package petrophysics

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Rrens/energy-agent/internal/agent"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/scope"
	"github.com/Rrens/energy-agent/internal/trace"
	"github.com/pkg/errors"
)

// Analysis is the requested interpretation
type Analysis string

const (
	AnalysisPorosity   Analysis = "porosity"
	AnalysisShale      Analysis = "shale_volume"
	AnalysisSaturation Analysis = "water_saturation"
	AnalysisMultiWell  Analysis = "multi_well"
)

// Artifact content types
const (
	ContentPorosity   = "comprehensive_porosity_analysis"
	ContentShale      = "shale_volume_analysis"
	ContentSaturation = "water_saturation_analysis"
)

var (
	wellPattern    = regexp.MustCompile(`(?i)\bwell[-_ ]?(\d+[a-z0-9]*)\b`)
	readingPattern = regexp.MustCompile(`(?i)\b(rhob|gr|rt|rw)\s*[=:]\s*(\d+(?:\.\d+)?)`)
	multiPattern   = regexp.MustCompile(`(?i)\b(all\s+wells|multi[-\s]?well|every\s+well|field[-\s]wide|compare\s+wells)\b`)
	shalePattern   = regexp.MustCompile(`(?i)\b(shale\s+volume|vshale?|larionov|gamma\s+ray\s+index|clay\s+volume)\b`)
	satPattern     = regexp.MustCompile(`(?i)\b(water\s+saturation|archie|sw|hydrocarbon\s+saturation)\b`)
)

type params struct {
	Well     string             `json:"wellName,omitempty"`
	Analysis Analysis           `json:"analysisType"`
	Readings map[string]float64 `json:"readings,omitempty"`
}

// Handler is the petrophysics agent
type Handler struct {
	wells map[string]Logs
	order []Logs
}

// New creates the handler over the built-in reference wells
func New() *Handler {
	return NewWithWells(referenceWells)
}

// NewWithWells creates the handler over the given reference wells
func NewWithWells(wells []Logs) *Handler {
	h := &Handler{wells: make(map[string]Logs, len(wells)), order: wells}
	for _, w := range wells {
		h.wells[scope.Normalize(w.Well)] = w
	}
	return h
}

// Handle extracts parameters, resolves log readings and runs the calculation
func (h *Handler) Handle(ctx context.Context, req agent.Request) (*agent.Result, error) {
	rec := req.Recorder
	if rec == nil {
		rec = trace.NewRecorder()
	}

	step := rec.Add(trace.TypeParameterExtraction, "Extracting parameters",
		"Reading well name, analysis type and log values from the request", nil, nil)
	p := extract(req.Message)
	if p.Well == "" && p.Analysis != AnalysisMultiWell {
		p.Well = wellFromHistory(req.History)
	}
	rec.Complete(step.ID, &trace.Update{
		Context: &trace.Context{WellName: p.Well, AnalysisType: string(p.Analysis)},
		Details: p,
	})

	if p.Analysis == AnalysisMultiWell {
		return h.multiWell(rec, req.Collection)
	}
	if p.Well == "" && len(p.Readings) == 0 {
		return &agent.Result{
			Success: false,
			Message: "Please name a well (for example WELL-001) or provide log readings such as RHOB=2.35, GR=75, RT=20.",
		}, nil
	}

	step = rec.Add(trace.TypeDataRetrieval, "Loading log data",
		"Resolving reference log readings for the well", &trace.Context{WellName: p.Well}, nil)
	logs, source, err := h.resolve(p)
	if err != nil {
		rec.Fail(step.ID, err, &trace.Context{WellName: p.Well})
		return nil, err
	}
	rec.Complete(step.ID, &trace.Update{
		Summary:     trace.String(fmt.Sprintf("Using %s log readings", source)),
		Details:     logs,
		RecordCount: intPtr(1),
	})

	switch p.Analysis {
	case AnalysisShale:
		return h.shaleVolume(rec, logs, source)
	case AnalysisSaturation:
		return h.waterSaturation(rec, logs, source)
	default:
		return h.porosity(rec, logs, source)
	}
}

func (h *Handler) resolve(p params) (Logs, string, error) {
	logs, found := h.wells[scope.Normalize(p.Well)]
	source := "reference"
	if !found {
		logs = Logs{Well: p.Well, GRClean: 25, GRShale: 140, Rw: DefaultRw}
		if logs.Well == "" {
			logs.Well = "user-supplied interval"
		}
		source = "user-supplied"
	}

	for name, v := range p.Readings {
		switch name {
		case "rhob":
			logs.RHOB = v
		case "gr":
			logs.GR = v
		case "rt":
			logs.RT = v
		case "rw":
			logs.Rw = v
		}
		if found {
			source = "reference and user-supplied"
		}
	}

	var missing []string
	switch p.Analysis {
	case AnalysisShale:
		if logs.GR == 0 {
			missing = append(missing, "GR")
		}
	case AnalysisSaturation:
		if logs.RHOB == 0 {
			missing = append(missing, "RHOB")
		}
		if logs.RT == 0 {
			missing = append(missing, "RT")
		}
	default:
		if logs.RHOB == 0 {
			missing = append(missing, "RHOB")
		}
	}
	if len(missing) > 0 {
		return Logs{}, "", errors.Errorf("no log data found for %s; provide %s readings", logs.Well, strings.Join(missing, ", "))
	}
	return logs, source, nil
}

func (h *Handler) porosity(rec *trace.Recorder, l Logs, source string) (*agent.Result, error) {
	step := rec.Add(trace.TypeCalculation, "Calculating density porosity",
		"φ = (ρma − ρb) / (ρma − ρf)", &trace.Context{WellName: l.Well, AnalysisType: string(AnalysisPorosity), Method: "density"}, nil)

	phi := DensityPorosity(l.RHOB, MatrixDensity, FluidDensity)
	quality := Quality(phi)

	rec.Complete(step.ID, &trace.Update{Details: map[string]float64{"porosity": round(phi, 4)}})

	artifact := domain.Artifact{
		domain.ArtifactTypeKey: ContentPorosity,
		"analysisType":         "single_well",
		"wellName":             l.Well,
		"method":               "density",
		"dataSource":           source,
		"parameters": map[string]any{
			"matrixDensity": MatrixDensity,
			"fluidDensity":  FluidDensity,
		},
		"inputs": map[string]any{"rhob": l.RHOB},
		"results": map[string]any{
			"porosity":        round(phi, 4),
			"porosityPercent": round(phi*100, 1),
			"quality":         quality,
		},
	}
	if iv := interval(l); iv != nil {
		artifact["interval"] = iv
	}

	msg := fmt.Sprintf("Density porosity for %s is %.1f%% (%s reservoir quality), from RHOB %.2f g/cc with a %.2f g/cc sandstone matrix.",
		l.Well, phi*100, quality, l.RHOB, MatrixDensity)
	return &agent.Result{
		Success:           true,
		Message:           msg,
		Artifacts:         []domain.Artifact{artifact},
		SourceAttribution: methodSources("density"),
	}, nil
}

func (h *Handler) shaleVolume(rec *trace.Recorder, l Logs, source string) (*agent.Result, error) {
	step := rec.Add(trace.TypeCalculation, "Calculating shale volume",
		"Larionov tertiary: Vsh = 0.083 · (2^(3.7·IGR) − 1)", &trace.Context{WellName: l.Well, AnalysisType: string(AnalysisShale), Method: "larionov_tertiary"}, nil)

	igr, err := GammaRayIndex(l.GR, l.GRClean, l.GRShale)
	if err != nil {
		err = errors.Wrapf(err, "gamma ray index for %s", l.Well)
		rec.Fail(step.ID, err, nil)
		return nil, err
	}
	vsh := LarionovTertiary(igr)
	rec.Complete(step.ID, &trace.Update{Details: map[string]float64{"igr": round(igr, 4), "vsh": round(vsh, 4)}})

	artifact := domain.Artifact{
		domain.ArtifactTypeKey: ContentShale,
		"wellName":             l.Well,
		"method":               "larionov_tertiary",
		"dataSource":           source,
		"inputs": map[string]any{
			"gr":      l.GR,
			"grClean": l.GRClean,
			"grShale": l.GRShale,
		},
		"results": map[string]any{
			"gammaRayIndex":      round(igr, 4),
			"shaleVolume":        round(vsh, 4),
			"shaleVolumePercent": round(vsh*100, 1),
			"netToGross":         round(1-vsh, 4),
		},
	}
	if iv := interval(l); iv != nil {
		artifact["interval"] = iv
	}

	msg := fmt.Sprintf("Shale volume for %s is %.1f%% (gamma ray index %.2f, Larionov tertiary correction).",
		l.Well, vsh*100, igr)
	return &agent.Result{
		Success:           true,
		Message:           msg,
		Artifacts:         []domain.Artifact{artifact},
		SourceAttribution: methodSources("larionov"),
	}, nil
}

func (h *Handler) waterSaturation(rec *trace.Recorder, l Logs, source string) (*agent.Result, error) {
	step := rec.Add(trace.TypeCalculation, "Calculating water saturation",
		"Archie: Sw = ((a·Rw) / (φ^m · Rt))^(1/n)", &trace.Context{WellName: l.Well, AnalysisType: string(AnalysisSaturation), Method: "archie"}, nil)

	phi := DensityPorosity(l.RHOB, MatrixDensity, FluidDensity)
	sw, err := ArchieSaturation(phi, l.RT, l.Rw, ArchieA, ArchieM, ArchieN)
	if err != nil {
		err = errors.Wrapf(err, "archie saturation for %s", l.Well)
		rec.Fail(step.ID, err, nil)
		return nil, err
	}
	rec.Complete(step.ID, &trace.Update{Details: map[string]float64{"porosity": round(phi, 4), "sw": round(sw, 4)}})

	artifact := domain.Artifact{
		domain.ArtifactTypeKey: ContentSaturation,
		"wellName":             l.Well,
		"method":               "archie",
		"dataSource":           source,
		"parameters": map[string]any{
			"a":  ArchieA,
			"m":  ArchieM,
			"n":  ArchieN,
			"rw": l.Rw,
		},
		"inputs": map[string]any{"rhob": l.RHOB, "rt": l.RT},
		"results": map[string]any{
			"porosity":              round(phi, 4),
			"waterSaturation":       round(sw, 4),
			"hydrocarbonSaturation": round(1-sw, 4),
			"bulkVolumeWater":       round(phi*sw, 4),
		},
	}
	if iv := interval(l); iv != nil {
		artifact["interval"] = iv
	}

	msg := fmt.Sprintf("Water saturation for %s is %.1f%% (hydrocarbon saturation %.1f%%) using Archie with a=%.0f, m=%.0f, n=%.0f, Rw=%.3f ohm-m.",
		l.Well, sw*100, (1-sw)*100, ArchieA, ArchieM, ArchieN, l.Rw)
	return &agent.Result{
		Success:           true,
		Message:           msg,
		Artifacts:         []domain.Artifact{artifact},
		SourceAttribution: methodSources("archie"),
	}, nil
}

// multiWell runs the full workflow over every reference well, limited to the
// collection's wells when the session is scoped
func (h *Handler) multiWell(rec *trace.Recorder, cc *domain.CollectionContext) (*agent.Result, error) {
	step := rec.Add(trace.TypeDataRetrieval, "Loading wells", "Selecting wells for the multi-well workflow", nil, nil)

	allowed := map[string]struct{}{}
	if cc != nil {
		for _, item := range cc.DataItems {
			allowed[scope.Normalize(item.ID)] = struct{}{}
			allowed[scope.Normalize(item.Name)] = struct{}{}
		}
	}
	var wells []Logs
	for _, w := range h.order {
		if len(allowed) > 0 {
			if _, ok := allowed[scope.Normalize(w.Well)]; !ok {
				continue
			}
		}
		wells = append(wells, w)
	}
	rec.Complete(step.ID, &trace.Update{RecordCount: intPtr(len(wells))})

	if len(wells) == 0 {
		return &agent.Result{Success: false, Message: "No wells with log data are available for a multi-well analysis."}, nil
	}

	step = rec.Add(trace.TypeCalculation, "Running multi-well workflow",
		"Density porosity, Larionov shale volume and Archie saturation per well", &trace.Context{AnalysisType: string(AnalysisMultiWell)}, nil)

	rows := make([]map[string]any, 0, len(wells))
	var sum, best float64
	bestWell := ""
	for _, w := range wells {
		phi := DensityPorosity(w.RHOB, MatrixDensity, FluidDensity)
		row := map[string]any{
			"wellName":  w.Well,
			"field":     w.Field,
			"formation": w.Formation,
			"porosity":  round(phi, 4),
			"quality":   Quality(phi),
		}
		if igr, err := GammaRayIndex(w.GR, w.GRClean, w.GRShale); err == nil {
			row["shaleVolume"] = round(LarionovTertiary(igr), 4)
		}
		if sw, err := ArchieSaturation(phi, w.RT, w.Rw, ArchieA, ArchieM, ArchieN); err == nil {
			row["waterSaturation"] = round(sw, 4)
		}
		rows = append(rows, row)

		sum += phi
		if phi > best {
			best, bestWell = phi, w.Well
		}
	}
	avg := sum / float64(len(wells))
	rec.Complete(step.ID, &trace.Update{RecordCount: intPtr(len(rows))})

	artifact := domain.Artifact{
		domain.ArtifactTypeKey: ContentPorosity,
		"analysisType":         "multi_well",
		"method":               "density",
		"wells":                rows,
		"summary": map[string]any{
			"wellCount":       len(rows),
			"averagePorosity": round(avg, 4),
			"bestWell":        bestWell,
			"bestPorosity":    round(best, 4),
		},
	}

	msg := fmt.Sprintf("Analyzed %d wells: average density porosity %.1f%%, best reservoir in %s at %.1f%%.",
		len(rows), avg*100, bestWell, best*100)
	return &agent.Result{
		Success:           true,
		Message:           msg,
		Artifacts:         []domain.Artifact{artifact},
		SourceAttribution: methodSources("density", "larionov", "archie"),
	}, nil
}

func extract(message string) params {
	p := params{Analysis: AnalysisPorosity}

	switch {
	case multiPattern.MatchString(message):
		p.Analysis = AnalysisMultiWell
	case shalePattern.MatchString(message):
		p.Analysis = AnalysisShale
	case satPattern.MatchString(message):
		p.Analysis = AnalysisSaturation
	}

	if m := wellPattern.FindStringSubmatch(message); m != nil {
		p.Well = canonicalWell(m[1])
	}

	for _, m := range readingPattern.FindAllStringSubmatch(message, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if p.Readings == nil {
			p.Readings = make(map[string]float64)
		}
		p.Readings[strings.ToLower(m[1])] = v
	}
	return p
}

// canonicalWell formats an identifier as WELL-NNN, zero padding pure numbers
func canonicalWell(id string) string {
	if n, err := strconv.Atoi(id); err == nil {
		return fmt.Sprintf("WELL-%03d", n)
	}
	return "WELL-" + strings.ToUpper(id)
}

// wellFromHistory returns the most recent well mentioned by the user
func wellFromHistory(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != domain.RoleUser {
			continue
		}
		if m := wellPattern.FindStringSubmatch(history[i].Content); m != nil {
			return canonicalWell(m[1])
		}
	}
	return ""
}

func interval(l Logs) map[string]any {
	if l.TopFt == 0 && l.BaseFt == 0 {
		return nil
	}
	return map[string]any{
		"topDepthFt":  l.TopFt,
		"baseDepthFt": l.BaseFt,
		"formation":   l.Formation,
		"field":       l.Field,
	}
}

var methodReferences = map[string]domain.SourceAttribution{
	"density": {
		Title:   "Density porosity",
		Snippet: "Porosity from bulk density with sandstone matrix 2.65 g/cc and fluid 1.0 g/cc.",
	},
	"larionov": {
		Title:   "Larionov (1969) shale volume, tertiary rocks",
		Snippet: "Vsh = 0.083 · (2^(3.7·IGR) − 1).",
	},
	"archie": {
		Title:   "Archie (1942) water saturation",
		Snippet: "Sw = ((a·Rw) / (φ^m · Rt))^(1/n) with a=1, m=2, n=2.",
	},
}

func methodSources(methods ...string) []domain.SourceAttribution {
	out := make([]domain.SourceAttribution, 0, len(methods))
	for _, m := range methods {
		out = append(out, methodReferences[m])
	}
	return out
}

func intPtr(v int) *int { return &v }
