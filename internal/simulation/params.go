package simulation

import (
	"aid-delivery-sim/internal/services"
	"errors"
	"fmt"
)

var ErrInvalidParams = errors.New("invalid simulation parameters")

// Params configures one run. Times are in ticks; one tick is five
// simulated minutes.
type Params struct {
	Seed  int64 `yaml:"seed" json:"seed"`
	Ticks int   `yaml:"ticks" json:"ticks"`

	Resolution float64 `yaml:"resolution" json:"resolution"`
	// distance a vehicle covers in one tick on an empty road
	Speed float64 `yaml:"speed" json:"speed"`

	LoadingTime           float64 `yaml:"loading_time" json:"loading_time"`
	DeliveryTime          float64 `yaml:"delivery_time" json:"delivery_time"`
	BreakdownRecoveryTime float64 `yaml:"breakdown_recovery_time" json:"breakdown_recovery_time"`

	Bays    int `yaml:"bays" json:"bays"`
	Drivers int `yaml:"drivers" json:"drivers"`

	ProbFailedDelivery float64 `yaml:"prob_failed_delivery" json:"prob_failed_delivery"`
	ProbBreakdown      float64 `yaml:"prob_breakdown" json:"prob_breakdown"`

	// households served by one load
	ManifestSize     int `yaml:"manifest_size" json:"manifest_size"`
	LoadsPerRound    int `yaml:"loads_per_round" json:"loads_per_round"`
	MaxRouteAttempts int `yaml:"max_route_attempts" json:"max_route_attempts"`

	FollowingDistance float64 `yaml:"following_distance" json:"following_distance"`
	MinSpeed          float64 `yaml:"min_speed" json:"min_speed"`

	Strategy services.BatchStrategy `yaml:"strategy" json:"strategy"`
}

func DefaultParams() Params {
	return Params{
		Seed:                  12345,
		Ticks:                 1440,
		Resolution:            5,
		Speed:                 1000,
		LoadingTime:           4,
		DeliveryTime:          6,
		BreakdownRecoveryTime: 25,
		Bays:                  10,
		Drivers:               10,
		ProbFailedDelivery:    0,
		ProbBreakdown:         0,
		ManifestSize:          20,
		LoadsPerRound:         1,
		MaxRouteAttempts:      3,
		FollowingDistance:     50,
		MinSpeed:              1,
		Strategy:              services.StrategyVulnerability,
	}
}

func (p Params) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(p.Ticks > 0, "ticks must be positive")
	check(p.Resolution > 0, "resolution must be positive")
	check(p.Speed > 0, "speed must be positive")
	check(p.LoadingTime >= 0, "loading time must not be negative")
	check(p.DeliveryTime >= 0, "delivery time must not be negative")
	check(p.BreakdownRecoveryTime > 0, "breakdown recovery time must be positive")
	check(p.Bays >= 1, "bays must be at least 1")
	check(p.Drivers >= 0, "drivers must not be negative")
	check(p.ProbFailedDelivery >= 0 && p.ProbFailedDelivery <= 1, "prob_failed_delivery must be within [0,1]")
	check(p.ProbBreakdown >= 0 && p.ProbBreakdown <= 1, "prob_breakdown must be within [0,1]")
	check(p.ManifestSize >= 1, "manifest size must be at least 1")
	check(p.LoadsPerRound >= 1, "loads per round must be at least 1")
	check(p.MaxRouteAttempts >= 1, "max route attempts must be at least 1")
	check(p.FollowingDistance >= 0, "following distance must not be negative")

	if _, err := services.ParseBatchStrategy(string(p.Strategy)); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidParams, problems)
	}
	return nil
}

// Header is the one-line parameter summary written at the top of reports.
func (p Params) Header() string {
	return fmt.Sprintf("# Drivers: %d; # Bays: %d; Loading Time: %g; Delivery Time: %g; Manifest Size: %d; Seed: %d",
		p.Drivers, p.Bays, p.LoadingTime, p.DeliveryTime, p.ManifestSize, p.Seed)
}
