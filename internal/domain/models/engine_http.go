package models

// Requests for engine HTTP endpoints. Defined in domain for consistency and reuse.

type DecisionRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Horizon    string `query:"horizon" json:"horizon" default:"D1" validate:"oneof=H1 D1 D5 D30"`
}

type DecisionsRequest struct {
	Horizon string `query:"horizon" json:"horizon" validate:"omitempty,oneof=H1 D1 D5 D30"`
	Limit   int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type ExplainRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Horizon    string `query:"horizon" json:"horizon" default:"D1" validate:"oneof=H1 D1 D5 D30"`
}

type WeightsRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Horizon    string `query:"horizon" json:"horizon" default:"D1" validate:"oneof=H1 D1 D5 D30"`
}

type AccuracyRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Horizon    string `query:"horizon" json:"horizon" default:"D1" validate:"oneof=H1 D1 D5 D30"`
}

type RunCycleRequest struct {
	Instruments []string `json:"instruments" validate:"omitempty,dive,required"`
}
