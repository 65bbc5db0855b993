package models

import "time"

// Direction is a predictor's directional opinion.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionFlat Direction = "FLAT"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionFlat:
		return true
	default:
		return false
	}
}

// Signal is one predictor's opinion about an instrument at a point in time.
// Confidence is in [0,1]; signals outside that range never pass the collector.
type Signal struct {
	SourceID     string    `json:"source_id"`
	InstrumentID string    `json:"instrument_id"`
	Direction    Direction `json:"direction"`
	Confidence   float64   `json:"confidence"`
	Horizon      string    `json:"horizon"`
	ObservedAt   time.Time `json:"observed_at"`
}

// Opinion is the raw predictor payload before normalization into a Signal.
type Opinion struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	ObservedAt time.Time `json:"observed_at"`
}
