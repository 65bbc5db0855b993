package repository

// Horizon represents the forward-looking timeframe a prediction applies to.
type Horizon string

const (
	H1  Horizon = "H1"  // one hour
	D1  Horizon = "D1"  // one trading day
	D5  Horizon = "D5"  // one trading week
	D30 Horizon = "D30" // one trading month
)

// IsValidHorizon returns true if h is a supported horizon.
func IsValidHorizon(h Horizon) bool {
	switch h {
	case H1, D1, D5, D30:
		return true
	default:
		return false
	}
}

// DefaultHorizon returns the default horizon.
func DefaultHorizon() Horizon { return D1 }

// NormalizeHorizon converts raw string to a valid horizon (or default).
func NormalizeHorizon(s string) Horizon {
	if s == "" {
		return DefaultHorizon()
	}
	h := Horizon(s)
	if IsValidHorizon(h) {
		return h
	}
	return DefaultHorizon()
}

// AllHorizons lists the horizons an evaluation cycle covers, in fixed order.
func AllHorizons() []Horizon {
	return []Horizon{H1, D1, D5, D30}
}
