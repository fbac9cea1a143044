package route

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidQuery is wrapped by every input validation failure
var ErrInvalidQuery = errors.New("invalid path query")

const (
	DefaultMinPathWidth                 = 1.0 // meters
	DefaultGridSize                     = 0.5 // meters
	DefaultMaxIterations                = 1000
	DefaultSampleCount                  = 5
	DefaultSearchOccupancyTolerance     = 1.0 // meters
	DefaultValidationOccupancyTolerance = 0.8 // meters
	DefaultWallMargin                   = 0.3 // meters
	DefaultWidthStep                    = 0.1 // meters
)

// Params holds the tunable constants of the engine
type Params struct {
	MinPathWidth                 float64       `yaml:"minPathWidth" json:"minPathWidth"`
	GridSize                     float64       `yaml:"gridSize" json:"gridSize"`
	MaxIterations                int           `yaml:"maxIterations" json:"maxIterations"`
	SampleCount                  int           `yaml:"sampleCount" json:"sampleCount"`
	SearchOccupancyTolerance     float64       `yaml:"searchOccupancyTolerance" json:"searchOccupancyTolerance"`
	ValidationOccupancyTolerance float64       `yaml:"validationOccupancyTolerance" json:"validationOccupancyTolerance"`
	WallMargin                   float64       `yaml:"wallMargin" json:"wallMargin"`
	WidthStep                    float64       `yaml:"widthStep,omitempty" json:"widthStep,omitempty"`
	AreaScaledBudget             bool          `yaml:"areaScaledBudget,omitempty" json:"areaScaledBudget,omitempty"`
	SearchTimeout                time.Duration `yaml:"searchTimeout,omitempty" json:"searchTimeout,omitempty"`
}

// DefaultParams returns the documented defaults
func DefaultParams() Params {
	return Params{
		MinPathWidth:                 DefaultMinPathWidth,
		GridSize:                     DefaultGridSize,
		MaxIterations:                DefaultMaxIterations,
		SampleCount:                  DefaultSampleCount,
		SearchOccupancyTolerance:     DefaultSearchOccupancyTolerance,
		ValidationOccupancyTolerance: DefaultValidationOccupancyTolerance,
		WallMargin:                   DefaultWallMargin,
		WidthStep:                    DefaultWidthStep,
	}
}

// WithDefaults fills zero-valued fields whose zero is unusable. The occupancy
// tolerances and WallMargin accept 0, so they are left alone; start from
// DefaultParams to get their documented values.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.MinPathWidth == 0 {
		p.MinPathWidth = d.MinPathWidth
	}
	if p.GridSize == 0 {
		p.GridSize = d.GridSize
	}
	if p.MaxIterations == 0 {
		p.MaxIterations = d.MaxIterations
	}
	if p.SampleCount == 0 {
		p.SampleCount = d.SampleCount
	}
	if p.WidthStep == 0 {
		p.WidthStep = d.WidthStep
	}
	return p
}

// Validate checks that every constant is usable
func (p Params) Validate() error {
	switch {
	case !isFinite(p.MinPathWidth) || p.MinPathWidth <= 0:
		return fmt.Errorf("minPathWidth must be positive, got %v", p.MinPathWidth)
	case !isFinite(p.GridSize) || p.GridSize <= 0:
		return fmt.Errorf("gridSize must be positive, got %v", p.GridSize)
	case p.MaxIterations <= 0:
		return fmt.Errorf("maxIterations must be positive, got %d", p.MaxIterations)
	case p.SampleCount < 2:
		return fmt.Errorf("sampleCount must be at least 2, got %d", p.SampleCount)
	case !isFinite(p.SearchOccupancyTolerance) || p.SearchOccupancyTolerance < 0:
		return fmt.Errorf("searchOccupancyTolerance must not be negative, got %v", p.SearchOccupancyTolerance)
	case !isFinite(p.ValidationOccupancyTolerance) || p.ValidationOccupancyTolerance < 0:
		return fmt.Errorf("validationOccupancyTolerance must not be negative, got %v", p.ValidationOccupancyTolerance)
	case !isFinite(p.WallMargin) || p.WallMargin < 0:
		return fmt.Errorf("wallMargin must not be negative, got %v", p.WallMargin)
	case !isFinite(p.WidthStep) || p.WidthStep <= 0:
		return fmt.Errorf("widthStep must be positive, got %v", p.WidthStep)
	case p.SearchTimeout < 0:
		return fmt.Errorf("searchTimeout must not be negative, got %v", p.SearchTimeout)
	}
	return nil
}

// iterationBudget returns the expansion cap for a search on envelope e
func (p Params) iterationBudget(e Envelope) int {
	if !p.AreaScaledBudget {
		return p.MaxIterations
	}
	return max(p.MaxIterations, 2*latticeCells(e, p.WallMargin, p.GridSize))
}
