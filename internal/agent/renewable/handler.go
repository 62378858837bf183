// Package renewable plans wind farm layouts and estimates their annual energy
// production.
package renewable

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/Rrens/energy-agent/internal/agent"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/trace"
	"github.com/google/uuid"
)

// Artifact content types
const (
	ContentLayout = "wind_farm_layout"
	ContentEnergy = "wind_farm_energy_estimate"
)

// Defaults for a modern onshore turbine
const (
	DefaultTurbineMW    = 3.6
	DefaultTurbineCount = 10
	DefaultWindSpeed    = 7.5
	MaxTurbines         = 400
)

var (
	coordPattern     = regexp.MustCompile(`(-?\d{1,2}(?:\.\d+)?)\s*°?\s*[nN]?\s*,\s*(-?\d{1,3}(?:\.\d+)?)`)
	countPattern     = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(?:x\s*)?(?:wind\s+)?(?:turbines?|wtgs?)\b`)
	turbineMWPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*-?\s*mw\s+(?:wind\s+)?(?:turbines?|units?|wtgs?)\b`)
	farmMWPattern    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*-?\s*mw\b`)
	windSpeedPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*m/s\b`)
	layoutPattern    = regexp.MustCompile(`(?i)\b(layout|site|siting|placement|place|design|create|build)\b`)
	energyPattern    = regexp.MustCompile(`(?i)\b(energy|aep|yield|production|generation|capacity\s+factor|co2|carbon|offset|output)\b`)
)

// Handler is the renewable energy agent
type Handler struct {
	store domain.ObjectStore
}

// New creates the handler. A nil store keeps layouts inline only.
func New(store domain.ObjectStore) *Handler {
	return &Handler{store: store}
}

// Handle plans a layout and/or energy estimate for the requested site
func (h *Handler) Handle(ctx context.Context, req agent.Request) (*agent.Result, error) {
	rec := req.Recorder
	if rec == nil {
		rec = trace.NewRecorder()
	}

	step := rec.Add(trace.TypeParameterExtraction, "Extracting site parameters",
		"Reading coordinates, turbine count, turbine rating and wind speed", nil, nil)
	site := extract(req.Message)
	wantLayout, wantEnergy := intents(req.Message)
	rec.Complete(step.ID, &trace.Update{
		Context: &trace.Context{AnalysisType: "wind_farm", Extra: map[string]any{"layout": wantLayout, "energy": wantEnergy}},
		Details: site,
	})

	if wantLayout && !site.HasLocation {
		return &agent.Result{
			Success: false,
			Message: "Please provide site coordinates as latitude, longitude (for example 35.067, -101.395) to plan a wind farm layout.",
		}, nil
	}

	var artifacts []domain.Artifact
	rows, _ := gridShape(site.TurbineCount)
	wake := WakeLoss(rows)
	msg := ""

	if wantLayout {
		step = rec.Add(trace.TypeCalculation, "Planning turbine layout",
			fmt.Sprintf("Placing %d turbines on a 7D x 4D grid", site.TurbineCount), nil, nil)
		layout := PlanGrid(site)
		wake = layout.WakeLossFraction
		rec.Complete(step.ID, &trace.Update{RecordCount: intPtr(len(layout.Turbines))})

		artifact := domain.Artifact{
			domain.ArtifactTypeKey: ContentLayout,
			"site":                 site,
			"layout":               layout,
			"geojson":              geoJSON(site, layout),
		}
		if key, err := h.persist(ctx, rec, req.SessionID, site, layout); err == nil && key != "" {
			artifact["s3Key"] = key
		}
		artifacts = append(artifacts, artifact)
		msg = fmt.Sprintf("Planned %d x %.1f MW turbines (%.1f MW) in %d rows x %d columns around %.4f, %.4f covering %.2f km².",
			site.TurbineCount, site.TurbineMW, site.CapacityMW(), layout.Rows, layout.Columns, site.Latitude, site.Longitude, layout.AreaKm2)
	}

	if wantEnergy {
		step = rec.Add(trace.TypeCalculation, "Estimating annual energy",
			fmt.Sprintf("Capacity factor from %.1f m/s mean wind speed", site.WindSpeedMS), nil, nil)
		est := EstimateEnergy(site, wake)
		rec.Complete(step.ID, &trace.Update{Details: est})

		artifacts = append(artifacts, domain.Artifact{
			domain.ArtifactTypeKey: ContentEnergy,
			"site":                 site,
			"estimate":             est,
		})
		if msg != "" {
			msg += " "
		}
		msg += fmt.Sprintf("Estimated net production is %.0f MWh/year (capacity factor %.1f%%, wake loss %.1f%%), offsetting about %.0f t CO₂ per year.",
			est.NetAEPMWh, est.CapacityFactor*100, est.WakeLossFraction*100, est.CO2OffsetTonnes)
	}

	return &agent.Result{Success: true, Message: msg, Artifacts: artifacts}, nil
}

// persist writes the layout to renewable/<session>/<id>/layout.json. Failures
// are recorded on the trace and leave the artifact inline only.
func (h *Handler) persist(ctx context.Context, rec *trace.Recorder, sessionID string, site Site, layout Layout) (string, error) {
	if h.store == nil {
		return "", nil
	}
	if sessionID == "" {
		sessionID = "anonymous"
	}
	key := fmt.Sprintf("renewable/%s/%s/layout.json", sessionID, uuid.NewString())

	step := rec.Add(trace.TypeExecution, "Saving layout", "Writing the layout to object storage", &trace.Context{S3Key: key}, nil)
	data, err := json.Marshal(geoJSON(site, layout))
	if err == nil {
		err = h.store.Put(ctx, key, data, "application/geo+json")
	}
	if err != nil {
		rec.Fail(step.ID, err, nil)
		return "", err
	}
	size := int64(len(data))
	rec.Complete(step.ID, &trace.Update{DataSize: &size})
	return key, nil
}

func geoJSON(site Site, layout Layout) map[string]any {
	features := make([]map[string]any, 0, len(layout.Turbines))
	for _, t := range layout.Turbines {
		features = append(features, map[string]any{
			"type": "Feature",
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []float64{t.Longitude, t.Latitude},
			},
			"properties": map[string]any{
				"id":             t.ID,
				"row":            t.Row,
				"column":         t.Column,
				"capacityMw":     site.TurbineMW,
				"rotorDiameterM": site.RotorDiameter,
			},
		})
	}
	return map[string]any{"type": "FeatureCollection", "features": features}
}

func extract(message string) Site {
	s := Site{TurbineMW: DefaultTurbineMW, WindSpeedMS: DefaultWindSpeed}

	if m := coordPattern.FindStringSubmatch(message); m != nil {
		lat, errLat := strconv.ParseFloat(m[1], 64)
		lon, errLon := strconv.ParseFloat(m[2], 64)
		if errLat == nil && errLon == nil && math.Abs(lat) <= 90 && math.Abs(lon) <= 180 {
			s.Latitude, s.Longitude, s.HasLocation = lat, lon, true
		}
	}

	if m := turbineMWPattern.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			s.TurbineMW = v
		}
	}

	if m := countPattern.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			s.TurbineCount = n
		}
	} else if m := farmMWPattern.FindStringSubmatch(message); m != nil && turbineMWPattern.FindString(message) == "" {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			s.TurbineCount = int(math.Ceil(v / s.TurbineMW))
		}
	}
	if s.TurbineCount <= 0 {
		s.TurbineCount = DefaultTurbineCount
	}
	if s.TurbineCount > MaxTurbines {
		s.TurbineCount = MaxTurbines
	}

	if m := windSpeedPattern.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			s.WindSpeedMS = v
		}
	}

	s.RotorDiameter = RotorDiameter(s.TurbineMW)
	return s
}

// intents reports which artifacts were asked for; neither means both
func intents(message string) (layout, energy bool) {
	layout = layoutPattern.MatchString(message)
	energy = energyPattern.MatchString(message)
	if !layout && !energy {
		return true, true
	}
	return layout, energy
}

func intPtr(v int) *int { return &v }
