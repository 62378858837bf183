package maintenance

import (
	"math"
	"time"
)

// Equipment is a monitored asset with its latest sensor readings
type Equipment struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Type                  string    `json:"type"`
	Location              string    `json:"location"`
	OperatingHours        float64   `json:"operatingHours"`
	HoursSinceMaintenance float64   `json:"hoursSinceMaintenance"`
	IntervalHours         float64   `json:"maintenanceIntervalHours"`
	LastMaintenance       time.Time `json:"lastMaintenance"`
	VibrationMMS          float64   `json:"vibrationMmS"`
	TemperatureC          float64   `json:"temperatureC"`
	RatedTemperatureC     float64   `json:"ratedTemperatureC"`
	EfficiencyPct         float64   `json:"efficiencyPct"`
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

var registry = []Equipment{
	{ID: "PUMP-001", Name: "Main export pump", Type: "centrifugal_pump", Location: "Platform A", OperatingHours: 18250, HoursSinceMaintenance: 1450, IntervalHours: 2000, LastMaintenance: day("2025-01-10"), VibrationMMS: 2.1, TemperatureC: 68, RatedTemperatureC: 80, EfficiencyPct: 91},
	{ID: "PUMP-002", Name: "Water injection pump", Type: "centrifugal_pump", Location: "Platform A", OperatingHours: 24100, HoursSinceMaintenance: 2300, IntervalHours: 2000, LastMaintenance: day("2024-11-02"), VibrationMMS: 5.2, TemperatureC: 84, RatedTemperatureC: 80, EfficiencyPct: 78},
	{ID: "COMP-123", Name: "Gas lift compressor", Type: "reciprocating_compressor", Location: "Platform B", OperatingHours: 31200, HoursSinceMaintenance: 900, IntervalHours: 4000, LastMaintenance: day("2025-02-01"), VibrationMMS: 3.4, TemperatureC: 92, RatedTemperatureC: 110, EfficiencyPct: 86},
	{ID: "COMP-124", Name: "Booster compressor", Type: "reciprocating_compressor", Location: "Platform B", OperatingHours: 40500, HoursSinceMaintenance: 3900, IntervalHours: 4000, LastMaintenance: day("2024-09-15"), VibrationMMS: 7.8, TemperatureC: 118, RatedTemperatureC: 110, EfficiencyPct: 64},
	{ID: "TURB-001", Name: "Power generation turbine", Type: "gas_turbine", Location: "Utilities", OperatingHours: 12800, HoursSinceMaintenance: 600, IntervalHours: 8000, LastMaintenance: day("2025-02-20"), VibrationMMS: 1.6, TemperatureC: 480, RatedTemperatureC: 540, EfficiencyPct: 94},
	{ID: "SEP-201", Name: "Production separator", Type: "separator", Location: "Platform A", OperatingHours: 52000, HoursSinceMaintenance: 5100, IntervalHours: 8760, LastMaintenance: day("2024-08-01"), VibrationMMS: 0.8, TemperatureC: 55, RatedTemperatureC: 90, EfficiencyPct: 88},
}

// Health is the scored condition of one asset
type Health struct {
	Score   float64  `json:"healthScore"`
	Status  string   `json:"status"`
	Issues  []string `json:"issues"`
	Overdue bool     `json:"maintenanceOverdue"`
}

// Assess scores an asset from 0 to 100 from vibration severity, temperature
// margin, efficiency and maintenance backlog
func Assess(e Equipment) Health {
	score := 100.0
	issues := []string{}

	switch {
	case e.VibrationMMS > 7.1:
		score -= 35
		issues = append(issues, "vibration in unacceptable zone (>7.1 mm/s)")
	case e.VibrationMMS > 4.5:
		score -= 20
		issues = append(issues, "vibration in unsatisfactory zone (>4.5 mm/s)")
	case e.VibrationMMS > 2.8:
		score -= 10
		issues = append(issues, "vibration above good zone (>2.8 mm/s)")
	}

	if e.RatedTemperatureC > 0 && e.TemperatureC > e.RatedTemperatureC {
		over := e.TemperatureC - e.RatedTemperatureC
		score -= math.Min(25, over*1.5)
		issues = append(issues, "operating above rated temperature")
	}

	if e.EfficiencyPct > 0 {
		score -= (100 - e.EfficiencyPct) * 0.5
		if e.EfficiencyPct < 80 {
			issues = append(issues, "efficiency below 80%")
		}
	}

	overdue := e.IntervalHours > 0 && e.HoursSinceMaintenance > e.IntervalHours
	switch {
	case overdue:
		score -= 15
		issues = append(issues, "scheduled maintenance overdue")
	case e.IntervalHours > 0 && e.HoursSinceMaintenance > 0.8*e.IntervalHours:
		score -= 5
	}

	score = math.Max(0, math.Min(100, score))
	return Health{Score: math.Round(score*10) / 10, Status: status(score), Issues: issues, Overdue: overdue}
}

func status(score float64) string {
	switch {
	case score >= 80:
		return "operational"
	case score >= 60:
		return "degraded"
	case score >= 40:
		return "needs_attention"
	default:
		return "critical"
	}
}

// Prediction is a 90-day failure outlook
type Prediction struct {
	FailureProbability float64 `json:"failureProbability90d"`
	RiskLevel          string  `json:"riskLevel"`
	RemainingLifeDays  int     `json:"estimatedRemainingLifeDays"`
	LikelyFailureMode  string  `json:"likelyFailureMode"`
}

// Predict derives the outlook from the health score
func Predict(e Equipment, h Health) Prediction {
	risk := (100 - h.Score) / 100
	prob := math.Round(math.Min(0.95, math.Pow(risk, 1.2)*1.1)*1000) / 1000

	level := "low"
	switch {
	case prob >= 0.5:
		level = "high"
	case prob >= 0.2:
		level = "medium"
	}

	rul := int(math.Max(7, h.Score/100*365))

	mode := "normal wear"
	switch {
	case e.VibrationMMS > 4.5:
		mode = "bearing or alignment failure"
	case e.RatedTemperatureC > 0 && e.TemperatureC > e.RatedTemperatureC:
		mode = "overheating and seal degradation"
	case e.EfficiencyPct > 0 && e.EfficiencyPct < 80:
		mode = "internal wear and fouling"
	}

	return Prediction{FailureProbability: prob, RiskLevel: level, RemainingLifeDays: rul, LikelyFailureMode: mode}
}

// Task is a scheduled maintenance activity
type Task struct {
	EquipmentID string    `json:"equipmentId"`
	Task        string    `json:"task"`
	DueDate     time.Time `json:"dueDate"`
	Priority    string    `json:"priority"`
	DurationHrs float64   `json:"estimatedDurationHours"`
}

var tasksByType = map[string][]string{
	"centrifugal_pump":         {"Inspect mechanical seals", "Check bearing lubrication", "Verify impeller clearance"},
	"reciprocating_compressor": {"Replace valve plates", "Inspect piston rings", "Check cylinder lubrication"},
	"gas_turbine":              {"Borescope inspection", "Replace inlet filters", "Inspect combustion liners"},
	"separator":                {"Inspect internals", "Calibrate level transmitters", "Test relief valve"},
}

// Schedule plans the next maintenance for an asset, assuming continuous operation
func Schedule(e Equipment, h Health, now time.Time) []Task {
	remaining := e.IntervalHours - e.HoursSinceMaintenance
	due := now.Add(time.Duration(remaining) * time.Hour)
	if remaining <= 0 || h.Status == "critical" {
		due = now
	}
	due = due.Truncate(24 * time.Hour)

	priority := "routine"
	switch {
	case h.Overdue || h.Status == "critical":
		priority = "urgent"
	case h.Status == "needs_attention" || h.Status == "degraded":
		priority = "high"
	}

	names := tasksByType[e.Type]
	if len(names) == 0 {
		names = []string{"General inspection"}
	}
	tasks := make([]Task, 0, len(names))
	for i, name := range names {
		tasks = append(tasks, Task{
			EquipmentID: e.ID,
			Task:        name,
			DueDate:     due.AddDate(0, 0, i),
			Priority:    priority,
			DurationHrs: 4,
		})
	}
	return tasks
}
