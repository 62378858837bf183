package renewable

import (
	"fmt"
	"math"
)

const (
	metersPerDegreeLat = 111320.0
	// Grid emission factor displaced by wind generation, tCO2 per MWh
	gridEmissionFactor = 0.4
	// Average household consumption, MWh per year
	householdMWh = 10.5
)

// Site describes the requested wind farm
type Site struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	HasLocation   bool    `json:"-"`
	TurbineCount  int     `json:"turbineCount"`
	TurbineMW     float64 `json:"turbineCapacityMw"`
	WindSpeedMS   float64 `json:"meanWindSpeedMs"`
	RotorDiameter float64 `json:"rotorDiameterM"`
}

// CapacityMW is the nameplate capacity of the farm
func (s Site) CapacityMW() float64 {
	return float64(s.TurbineCount) * s.TurbineMW
}

// Turbine is one placed turbine
type Turbine struct {
	ID        string  `json:"id"`
	Row       int     `json:"row"`
	Column    int     `json:"column"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Layout is a rectangular turbine grid centered on the site
type Layout struct {
	Rows             int       `json:"rows"`
	Columns          int       `json:"columns"`
	RowSpacingM      float64   `json:"rowSpacingM"`
	ColumnSpacingM   float64   `json:"columnSpacingM"`
	Turbines         []Turbine `json:"turbines"`
	AreaKm2          float64   `json:"areaKm2"`
	WakeLossFraction float64   `json:"wakeLossFraction"`
}

// RotorDiameter estimates rotor size from rated power
func RotorDiameter(mw float64) float64 {
	return math.Round(math.Sqrt(mw) * 79)
}

// PlanGrid places turbines with 7D spacing between rows (downwind) and 4D
// within a row (crosswind)
func PlanGrid(s Site) Layout {
	rows, cols := gridShape(s.TurbineCount)
	if cols == 0 {
		return Layout{Turbines: []Turbine{}}
	}

	rowSpacing := 7 * s.RotorDiameter
	colSpacing := 4 * s.RotorDiameter
	metersPerDegreeLon := metersPerDegreeLat * math.Cos(s.Latitude*math.Pi/180)

	turbines := make([]Turbine, 0, s.TurbineCount)
	for i := 0; i < s.TurbineCount; i++ {
		r, c := i/cols, i%cols
		north := (float64(r) - float64(rows-1)/2) * rowSpacing
		east := (float64(c) - float64(cols-1)/2) * colSpacing
		turbines = append(turbines, Turbine{
			ID:        turbineID(i),
			Row:       r + 1,
			Column:    c + 1,
			Latitude:  round(s.Latitude+north/metersPerDegreeLat, 6),
			Longitude: round(s.Longitude+east/metersPerDegreeLon, 6),
		})
	}

	area := float64(rows) * rowSpacing * float64(cols) * colSpacing / 1e6
	return Layout{
		Rows:             rows,
		Columns:          cols,
		RowSpacingM:      rowSpacing,
		ColumnSpacingM:   colSpacing,
		Turbines:         turbines,
		AreaKm2:          round(area, 2),
		WakeLossFraction: WakeLoss(rows),
	}
}

// gridShape returns the most square grid that holds n turbines
func gridShape(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = int(math.Ceil(float64(n) / float64(cols)))
	return rows, cols
}

func turbineID(i int) string {
	return fmt.Sprintf("T%03d", i+1)
}

// WakeLoss grows with the number of rows the wind crosses
func WakeLoss(rows int) float64 {
	if rows < 1 {
		rows = 1
	}
	return round(math.Min(0.15, 0.05+0.01*float64(rows-1)), 3)
}

// CapacityFactor approximates a modern turbine's capacity factor from mean wind speed
func CapacityFactor(windSpeed float64) float64 {
	return round(math.Max(0.05, math.Min(0.6, 0.087*windSpeed-0.278)), 3)
}

// Estimate is the annual energy outlook of a farm
type Estimate struct {
	CapacityMW       float64 `json:"capacityMw"`
	CapacityFactor   float64 `json:"capacityFactor"`
	WakeLossFraction float64 `json:"wakeLossFraction"`
	GrossAEPMWh      float64 `json:"grossAepMwh"`
	NetAEPMWh        float64 `json:"netAepMwh"`
	CO2OffsetTonnes  float64 `json:"co2OffsetTonnesPerYear"`
	HomesPowered     int     `json:"homesPowered"`
}

// EstimateEnergy computes gross and net annual energy production
func EstimateEnergy(s Site, wakeLoss float64) Estimate {
	cf := CapacityFactor(s.WindSpeedMS)
	gross := s.CapacityMW() * 8760 * cf
	net := gross * (1 - wakeLoss)
	return Estimate{
		CapacityMW:       round(s.CapacityMW(), 2),
		CapacityFactor:   cf,
		WakeLossFraction: wakeLoss,
		GrossAEPMWh:      round(gross, 0),
		NetAEPMWh:        round(net, 0),
		CO2OffsetTonnes:  round(net*gridEmissionFactor, 0),
		HomesPowered:     int(net / householdMWh),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
