// Package growth projects staked value forward under monthly
// compounding. Deterministic, no market input.
package growth

import (
	"fmt"
	"math"
)

// Point is one month of the projection. Month 0 restates the
// starting amount so the series always begins at the principal.
type Point struct {
	Month           int      `json:"month"`
	ProjectedValue  float64  `json:"projectedValue"`
	CumulativeYield float64  `json:"cumulativeYield"`
	Milestones      []string `json:"milestones,omitempty"`
}

// Project compounds initialAmount at apyPct for the given number of
// months. Milestones fire once each: fixed checkpoints at months 3,
// 6 and 12, plus the first crossings of 10% and 25% cumulative growth.
func Project(initialAmount, apyPct float64, months int) []Point {
	if months < 0 {
		months = 0
	}

	monthlyRate := apyPct / 100 / 12
	points := make([]Point, 0, months+1)
	points = append(points, Point{Month: 0, ProjectedValue: round2(initialAmount)})

	value := initialAmount
	cumulative := 0.0
	crossed10, crossed25 := false, false

	for month := 1; month <= months; month++ {
		yield := value * monthlyRate
		value += yield
		cumulative += yield

		var milestones []string
		switch month {
		case 3:
			milestones = append(milestones, "First quarter complete")
		case 6:
			milestones = append(milestones, "Half year of compounding")
		case 12:
			milestones = append(milestones, "Full year of compounding")
		}

		if initialAmount > 0 {
			growth := cumulative / initialAmount
			if !crossed10 && growth >= 0.10 {
				crossed10 = true
				milestones = append(milestones, fmt.Sprintf("Crossed 10%% total growth in month %d", month))
			}
			if !crossed25 && growth >= 0.25 {
				crossed25 = true
				milestones = append(milestones, fmt.Sprintf("Crossed 25%% total growth in month %d", month))
			}
		}

		points = append(points, Point{
			Month:           month,
			ProjectedValue:  round2(value),
			CumulativeYield: round2(cumulative),
			Milestones:      milestones,
		})
	}
	return points
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
