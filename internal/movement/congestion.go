package movement

import "aid-delivery-sim/internal/roadnet"

// Congestion slows vehicles down on crowded edges.
type Congestion struct {
	// Road space each vehicle wants in front of it.
	FollowingDistance float64
	// Below this speed the head and tail of a queue move at nominal speed.
	MinSpeed float64
	// Only vehicles at this nominal speed are slowed. Zero slows everyone.
	BaselineSpeed float64
}

// DefaultCongestion keeps ten vehicle lengths of 5 between vehicles.
func DefaultCongestion(baseline float64) Congestion {
	return Congestion{
		FollowingDistance: 50,
		MinSpeed:          1,
		BaselineSpeed:     baseline,
	}
}

// EffectiveSpeed returns the speed o can travel on e given its occupancy.
func (c Congestion) EffectiveSpeed(e *roadnet.Edge, o roadnet.Occupant, nominal float64) float64 {
	if e == nil || !e.Tracked || e.Occupancy() == 0 {
		return nominal
	}
	if c.BaselineSpeed > 0 && nominal != c.BaselineSpeed {
		return nominal
	}

	space := e.LengthPerOccupant()
	if space >= c.FollowingDistance {
		return nominal
	}

	speed := 0.0
	if space > 0 {
		speed = nominal / (c.FollowingDistance / space)
	}

	if speed < c.MinSpeed {
		i := e.IndexOf(o)
		if i == 0 || (i > 0 && i == e.Occupancy()-1) {
			return nominal
		}
	}
	return speed
}
