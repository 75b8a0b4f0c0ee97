// Package grading holds the grade aggregation engine: weighted totals, item statistics and letter bands.
// It works on plain values and never touches storage.
package grading

// Letters in descending order.
var Letters = []string{"A", "B", "C", "D", "F"}

// letter bands: inclusive lower bounds on the percentage, first match wins
var bands = []struct {
	min    float64
	letter string
}{
	{90, "A"},
	{80, "B"},
	{70, "C"},
	{60, "D"},
}

// Score is one recorded score of a student along with the grade item it was recorded for.
type Score struct {
	Score    float64
	MaxScore float64
	Weight   float64
}

// Stats describes the recorded scores of one grade item.
type Stats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
}

// Percentage normalizes score to a 0-100 scale.
func Percentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return score * 100 / maxScore
}

// WeightedTotal returns the weighted mean of the normalized scores.
// Only recorded scores count, in both the numerator and the denominator; no scores (or no weight) yields 0.
func WeightedTotal(scores []Score) float64 {
	var sum, weights float64
	for _, s := range scores {
		sum += Percentage(s.Score, s.MaxScore) * s.Weight
		weights += s.Weight
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// Statistics computes count, mean, max & min of scores. All are 0 when there are no scores.
func Statistics(scores []float64) Stats {
	if len(scores) == 0 {
		return Stats{}
	}
	st := Stats{Count: len(scores), Max: scores[0], Min: scores[0]}
	var sum float64
	for _, s := range scores {
		sum += s
		if s > st.Max {
			st.Max = s
		}
		if s < st.Min {
			st.Min = s
		}
	}
	st.Mean = sum / float64(len(scores))
	return st
}

// Letter buckets score by its percentage of maxScore.
func Letter(score, maxScore float64) string {
	pct := Percentage(score, maxScore)
	for _, b := range bands {
		if pct >= b.min {
			return b.letter
		}
	}
	return "F"
}

// Distribution counts scores per letter. Every letter is present.
func Distribution(scores []float64, maxScore float64) map[string]int {
	dist := make(map[string]int, len(Letters))
	for _, l := range Letters {
		dist[l] = 0
	}
	for _, s := range scores {
		dist[Letter(s, maxScore)]++
	}
	return dist
}
