package planner

import (
	"errors"
	"fmt"
	"time"
)

// Thresholds tunes preprocessing and stream confirmation.
type Thresholds struct {
	// MinDimension is the smallest width or height any decoder will see.
	MinDimension int
	// OptimalDimension bounds the longer side of the downscaled candidate.
	OptimalDimension int
	// CropFactor is the fraction of each side kept by the centered crop.
	CropFactor float64
	// ResizeFactor is the largest scale at which downscaling is still
	// worth a separate candidate.
	ResizeFactor float64

	RequiredConsecutiveDetections int
	MinSampleInterval             time.Duration
}

// DefaultThresholds returns the stock scanning thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDimension:                  60,
		OptimalDimension:              1024,
		CropFactor:                    0.5,
		ResizeFactor:                  0.9,
		RequiredConsecutiveDetections: 3,
		MinSampleInterval:             100 * time.Millisecond,
	}
}

// Validate checks that every threshold is in range.
func (t Thresholds) Validate() error {
	var errs []error
	if t.MinDimension < 1 {
		errs = append(errs, fmt.Errorf("min dimension must be positive, got %d", t.MinDimension))
	}
	if t.OptimalDimension < t.MinDimension {
		errs = append(errs, fmt.Errorf("optimal dimension %d below min dimension %d", t.OptimalDimension, t.MinDimension))
	}
	if t.CropFactor <= 0 || t.CropFactor >= 1 {
		errs = append(errs, fmt.Errorf("crop factor must be in (0,1), got %g", t.CropFactor))
	}
	if t.ResizeFactor <= 0 || t.ResizeFactor > 1 {
		errs = append(errs, fmt.Errorf("resize factor must be in (0,1], got %g", t.ResizeFactor))
	}
	if t.RequiredConsecutiveDetections < 1 {
		errs = append(errs, fmt.Errorf("required consecutive detections must be >= 1, got %d", t.RequiredConsecutiveDetections))
	}
	if t.MinSampleInterval < 0 {
		errs = append(errs, fmt.Errorf("min sample interval must not be negative, got %s", t.MinSampleInterval))
	}
	return errors.Join(errs...)
}
