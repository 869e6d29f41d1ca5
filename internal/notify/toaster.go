// Package notify describes how transient user-facing messages are displayed.
package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Placement is the screen corner or edge a toast is anchored to
type Placement string

const (
	PlacementTopStart    Placement = "top-start"
	PlacementTop         Placement = "top"
	PlacementTopEnd      Placement = "top-end"
	PlacementBottomStart Placement = "bottom-start"
	PlacementBottom      Placement = "bottom"
	PlacementBottomEnd   Placement = "bottom-end"
)

const (
	// DefaultDurationMS is how long a toast stays visible unless configured otherwise
	DefaultDurationMS = 3000

	// DefaultPlacement anchors toasts to the bottom trailing corner
	DefaultPlacement = PlacementBottomEnd
)

var placements = map[Placement]bool{
	PlacementTopStart:    true,
	PlacementTop:         true,
	PlacementTopEnd:      true,
	PlacementBottomStart: true,
	PlacementBottom:      true,
	PlacementBottomEnd:   true,
}

// Toaster is the display configuration handed to the presentation layer
type Toaster struct {
	Duration  time.Duration
	Placement Placement
}

// New validates and builds a toaster configuration
func New(durationMS int, placement string) (Toaster, error) {
	if durationMS <= 0 {
		return Toaster{}, fmt.Errorf("invalid toast duration %dms: must be positive", durationMS)
	}
	p := Placement(placement)
	if !placements[p] {
		return Toaster{}, fmt.Errorf("invalid toast placement '%s'", placement)
	}
	return Toaster{
		Duration:  time.Duration(durationMS) * time.Millisecond,
		Placement: p,
	}, nil
}

var (
	defaultOnce    sync.Once
	defaultToaster Toaster
)

// Default returns the shared toaster configuration, built once per process
func Default() Toaster {
	defaultOnce.Do(func() {
		defaultToaster = Toaster{
			Duration:  DefaultDurationMS * time.Millisecond,
			Placement: DefaultPlacement,
		}
	})
	return defaultToaster
}

type toasterJSON struct {
	Duration  int64     `json:"duration"`
	Placement Placement `json:"placement"`
}

// MarshalJSON encodes the duration in milliseconds, as toast widgets expect
func (t Toaster) MarshalJSON() ([]byte, error) {
	return json.Marshal(toasterJSON{
		Duration:  t.Duration.Milliseconds(),
		Placement: t.Placement,
	})
}

// UnmarshalJSON decodes and validates the millisecond form
func (t *Toaster) UnmarshalJSON(data []byte) error {
	var raw toasterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(int(raw.Duration), string(raw.Placement))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
