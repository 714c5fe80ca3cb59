package eval

import "github.com/cascadehq/cascade/pkg/models"

// trendMargin is the average-score delta below which history counts as
// stable.
const trendMargin = 5

// Trend summarizes a node's retained evaluation history by comparing the
// average of the newer half against the older half.
func Trend(history []*models.EvaluationRecord) models.EvaluationTrend {
	trend := models.EvaluationTrend{Direction: models.TrendStable, Samples: len(history)}

	if len(history) == 0 {
		return trend
	}

	var sum int

	for _, record := range history {
		sum += record.Overall
	}

	trend.Average = sum / len(history)

	if len(history) < 2 {
		return trend
	}

	mid := len(history) / 2
	older := average(history[:mid])
	newer := average(history[mid:])

	switch {
	case newer-older > trendMargin:
		trend.Direction = models.TrendImproving
	case older-newer > trendMargin:
		trend.Direction = models.TrendDeclining
	}

	return trend
}

func average(records []*models.EvaluationRecord) int {
	if len(records) == 0 {
		return 0
	}

	var sum int

	for _, record := range records {
		sum += record.Overall
	}

	return sum / len(records)
}
