// Package maintenance reports equipment health, maintenance schedules and
// failure outlooks from the equipment registry.
package maintenance

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Rrens/energy-agent/internal/agent"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/trace"
)

// Artifact content types
const (
	ContentHealth     = "equipment_health"
	ContentSchedule   = "maintenance_schedule"
	ContentPrediction = "failure_prediction"
)

// Intent is what the user asked about the equipment
type Intent string

const (
	IntentStatus     Intent = "status"
	IntentSchedule   Intent = "schedule"
	IntentPrediction Intent = "failure_prediction"
)

var (
	equipmentPattern  = regexp.MustCompile(`(?i)\b(pump|comp|turb|valve|sep|hx)[-_ ]?(\d+)\b`)
	schedulePattern   = regexp.MustCompile(`(?i)\b(schedule|plan|next\s+maintenance|due|when)\b`)
	predictionPattern = regexp.MustCompile(`(?i)\b(predict\w*|failure|fail|remaining\s+life|rul|risk)\b`)
)

// Handler is the maintenance agent
type Handler struct {
	equipment map[string]Equipment
	order     []string
	now       func() time.Time
}

// New creates the handler over the built-in registry
func New() *Handler {
	return NewWithEquipment(registry, time.Now)
}

// NewWithEquipment creates the handler over the given registry and clock
func NewWithEquipment(items []Equipment, now func() time.Time) *Handler {
	h := &Handler{equipment: make(map[string]Equipment, len(items)), now: now}
	for _, e := range items {
		h.equipment[e.ID] = e
		h.order = append(h.order, e.ID)
	}
	return h
}

// Handle resolves the equipment and intent, then builds the matching artifact
func (h *Handler) Handle(ctx context.Context, req agent.Request) (*agent.Result, error) {
	rec := req.Recorder
	if rec == nil {
		rec = trace.NewRecorder()
	}

	step := rec.Add(trace.TypeParameterExtraction, "Identifying equipment",
		"Extracting equipment identifier and request type", nil, nil)
	id, intent := extract(req.Message)
	rec.Complete(step.ID, &trace.Update{
		Context: &trace.Context{AnalysisType: string(intent), Extra: map[string]any{"equipmentId": id}},
	})

	step = rec.Add(trace.TypeDataRetrieval, "Loading equipment records", "Reading the equipment registry", nil, nil)
	var targets []Equipment
	if id != "" {
		e, ok := h.equipment[id]
		if !ok {
			rec.Fail(step.ID, fmt.Errorf("equipment %s not found", id), nil)
			return &agent.Result{
				Success: false,
				Message: fmt.Sprintf("Equipment %s was not found. Known equipment: %s.", id, strings.Join(h.order, ", ")),
			}, nil
		}
		targets = []Equipment{e}
	} else {
		for _, key := range h.order {
			targets = append(targets, h.equipment[key])
		}
	}
	rec.Complete(step.ID, &trace.Update{RecordCount: intPtr(len(targets))})

	step = rec.Add(trace.TypeCalculation, "Assessing equipment condition",
		"Scoring vibration, temperature, efficiency and maintenance backlog", nil, nil)
	var res *agent.Result
	switch intent {
	case IntentSchedule:
		res = h.schedule(targets)
	case IntentPrediction:
		res = h.predict(targets)
	default:
		res = h.status(targets)
	}
	rec.Complete(step.ID, &trace.Update{RecordCount: intPtr(len(res.Artifacts))})
	return res, nil
}

func (h *Handler) status(targets []Equipment) *agent.Result {
	if len(targets) == 1 {
		e := targets[0]
		health := Assess(e)
		artifact := domain.Artifact{
			domain.ArtifactTypeKey: ContentHealth,
			"equipment":            e,
			"health":               health,
		}
		msg := fmt.Sprintf("%s (%s) health score is %.1f/100, status %s.", e.ID, e.Name, health.Score, health.Status)
		if len(health.Issues) > 0 {
			msg += " Issues: " + strings.Join(health.Issues, "; ") + "."
		}
		return &agent.Result{Success: true, Message: msg, Artifacts: []domain.Artifact{artifact}}
	}

	rows := make([]map[string]any, 0, len(targets))
	attention := 0
	for _, e := range targets {
		health := Assess(e)
		if health.Status != "operational" {
			attention++
		}
		rows = append(rows, map[string]any{
			"equipmentId": e.ID,
			"name":        e.Name,
			"type":        e.Type,
			"location":    e.Location,
			"healthScore": health.Score,
			"status":      health.Status,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i]["healthScore"].(float64) < rows[j]["healthScore"].(float64)
	})

	artifact := domain.Artifact{
		domain.ArtifactTypeKey: ContentHealth,
		"fleet":                rows,
		"summary": map[string]any{
			"total":          len(rows),
			"needsAttention": attention,
		},
	}
	msg := fmt.Sprintf("Fleet overview: %d assets, %d need attention. Lowest health: %s.", len(rows), attention, rows[0]["equipmentId"])
	return &agent.Result{Success: true, Message: msg, Artifacts: []domain.Artifact{artifact}}
}

func (h *Handler) schedule(targets []Equipment) *agent.Result {
	now := h.now().UTC()
	var tasks []Task
	for _, e := range targets {
		tasks = append(tasks, Schedule(e, Assess(e), now)...)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(tasks[j].DueDate) })

	artifact := domain.Artifact{
		domain.ArtifactTypeKey: ContentSchedule,
		"generatedAt":          now,
		"tasks":                tasks,
	}
	msg := fmt.Sprintf("Planned %d maintenance tasks. First due: %s on %s (%s).",
		len(tasks), tasks[0].Task, tasks[0].DueDate.Format("2006-01-02"), tasks[0].Priority)
	return &agent.Result{Success: true, Message: msg, Artifacts: []domain.Artifact{artifact}}
}

func (h *Handler) predict(targets []Equipment) *agent.Result {
	rows := make([]map[string]any, 0, len(targets))
	highest := ""
	var highestProb float64 = -1
	for _, e := range targets {
		health := Assess(e)
		p := Predict(e, health)
		rows = append(rows, map[string]any{
			"equipmentId": e.ID,
			"name":        e.Name,
			"healthScore": health.Score,
			"prediction":  p,
		})
		if p.FailureProbability > highestProb {
			highestProb, highest = p.FailureProbability, e.ID
		}
	}

	artifact := domain.Artifact{
		domain.ArtifactTypeKey: ContentPrediction,
		"horizonDays":          90,
		"predictions":          rows,
	}
	msg := fmt.Sprintf("Highest 90-day failure risk: %s at %.0f%%.", highest, highestProb*100)
	return &agent.Result{Success: true, Message: msg, Artifacts: []domain.Artifact{artifact}}
}

func extract(message string) (string, Intent) {
	id := ""
	if m := equipmentPattern.FindStringSubmatch(message); m != nil {
		var n int
		fmt.Sscanf(m[2], "%d", &n)
		id = fmt.Sprintf("%s-%03d", strings.ToUpper(m[1]), n)
	}

	intent := IntentStatus
	switch {
	case predictionPattern.MatchString(message):
		intent = IntentPrediction
	case schedulePattern.MatchString(message):
		intent = IntentSchedule
	}
	return id, intent
}

func intPtr(v int) *int { return &v }
