package petrophysics

import (
	"errors"
	"math"
)

// Default interpretation parameters
const (
	MatrixDensity = 2.65 // sandstone, g/cc
	FluidDensity  = 1.0  // fresh mud filtrate, g/cc
	ArchieA       = 1.0
	ArchieM       = 2.0
	ArchieN       = 2.0
	DefaultRw     = 0.05 // ohm-m
)

var (
	errNoPorosity    = errors.New("porosity must be positive to compute water saturation")
	errNoResistivity = errors.New("true resistivity must be positive")
	errBadGammaRange = errors.New("shale gamma ray must exceed clean gamma ray")
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// DensityPorosity computes φ = (ρma − ρb) / (ρma − ρf), clamped to [0, 1]
func DensityPorosity(rhob, rhoMatrix, rhoFluid float64) float64 {
	if rhoMatrix == rhoFluid {
		return 0
	}
	return clamp01((rhoMatrix - rhob) / (rhoMatrix - rhoFluid))
}

// GammaRayIndex computes IGR = (GR − GRclean) / (GRshale − GRclean), clamped to [0, 1]
func GammaRayIndex(gr, grClean, grShale float64) (float64, error) {
	if grShale <= grClean {
		return 0, errBadGammaRange
	}
	return clamp01((gr - grClean) / (grShale - grClean)), nil
}

// LarionovTertiary converts a gamma ray index into shale volume for unconsolidated rocks
func LarionovTertiary(igr float64) float64 {
	return clamp01(0.083 * (math.Pow(2, 3.7*igr) - 1))
}

// ArchieSaturation computes Sw = ((a·Rw) / (φ^m · Rt))^(1/n), clamped to [0, 1]
func ArchieSaturation(phi, rt, rw, a, m, n float64) (float64, error) {
	if phi <= 0 {
		return 0, errNoPorosity
	}
	if rt <= 0 {
		return 0, errNoResistivity
	}
	return clamp01(math.Pow((a*rw)/(math.Pow(phi, m)*rt), 1/n)), nil
}

// Quality grades reservoir porosity
func Quality(phi float64) string {
	switch {
	case phi >= 0.20:
		return "excellent"
	case phi >= 0.15:
		return "good"
	case phi >= 0.10:
		return "fair"
	default:
		return "poor"
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
