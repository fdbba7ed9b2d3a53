package model

import (
	"errors"
	"log/slog"
)

// ErrInvalidResolution is returned when a requested target resolution is below
// the minimum the orchestrator will ever scale to.
var ErrInvalidResolution = errors.New("targetResolutionHeight must be >= 144")

// EditOptions describes a requested edit to apply during processing.
// CutStartTime and CutEndTime are nil when the caller did not request a cut;
// TargetResolutionHeight is nil when no rescale was requested.
type EditOptions struct {
	CutStartTime           *float64
	CutEndTime             *float64
	Mute                   bool
	TargetResolutionHeight *int
}

// NewEditOptions validates and constructs EditOptions from raw request values.
// Mute is required (always supplied); the pointer fields are optional.
func NewEditOptions(cutStartTime, cutEndTime *float64, mute bool, targetResolutionHeight *int) (*EditOptions, error) {
	if targetResolutionHeight != nil && *targetResolutionHeight < 144 {
		return nil, ErrInvalidResolution
	}

	return &EditOptions{
		CutStartTime:           cutStartTime,
		CutEndTime:              cutEndTime,
		Mute:                   mute,
		TargetResolutionHeight: targetResolutionHeight,
	}, nil
}

// EffectiveCutStart returns the start offset clamped to zero per the
// orchestrator's edge-case policy (negative start treated as 0).
func (o *EditOptions) EffectiveCutStart() float64 {
	if o.CutStartTime == nil || *o.CutStartTime < 0 {
		return 0
	}
	return *o.CutStartTime
}

// Duration returns the requested output duration and whether it is valid.
// A non-positive window (cutEndTime <= effective start) is invalid: Duration
// logs a warning and reports false, and the caller omits -t.
func (o *EditOptions) Duration() (float64, bool) {
	if o.CutEndTime == nil {
		return 0, false
	}
	start := o.EffectiveCutStart()
	d := *o.CutEndTime - start
	if d <= 0 {
		slog.Warn("ignoring cutEndTime: not after effective cut start",
			"cut_end_time", *o.CutEndTime,
			"effective_cut_start", start,
		)
		return 0, false
	}
	return d, true
}

// HasCutStart reports whether an input-side -ss offset should be applied.
func (o *EditOptions) HasCutStart() bool {
	return o.CutStartTime != nil && *o.CutStartTime >= 0
}

// HasScale reports whether a scale filter should be applied.
func (o *EditOptions) HasScale() bool {
	return o.TargetResolutionHeight != nil && *o.TargetResolutionHeight > 0
}
