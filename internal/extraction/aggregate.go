package extraction

import "time"

// Status is the processing state of one attachment.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// OCRResult is the extraction outcome stored on an attachment. Text holds a
// serialized Record once Status is success; Error holds the failure reason
// once Status is failed.
type OCRResult struct {
	Status      Status     `json:"status"`
	Text        *string    `json:"text"`
	Error       *string    `json:"error"`
	Engine      string     `json:"engine,omitempty"`
	LastUpdated *time.Time `json:"last_updated"`
}

// Score is the message-level view over all attachment results.
type Score struct {
	OverallConfidence  int `json:"overall_confidence"`
	OverallDuplication int `json:"overall_duplication"`
}

// Aggregate computes message scores from scratch. Only successful results
// whose text decodes take part; the order of results does not matter.
func Aggregate(results []OCRResult) Score {
	var (
		sum, n     int
		canonicals []string
	)
	for _, res := range results {
		if res.Status != StatusSuccess || res.Text == nil {
			continue
		}
		rec, err := ParseRecord(*res.Text)
		if err != nil {
			continue
		}
		sum += rec.ConfidenceScore
		n++
		if c := rec.Canonical(); c != "" {
			canonicals = append(canonicals, c)
		}
	}

	var score Score
	if n > 0 {
		score.OverallConfidence = sum / n
	}
	if len(canonicals) < 2 {
		return score
	}
	for i := range canonicals {
		for j := i + 1; j < len(canonicals); j++ {
			score.OverallDuplication = max(score.OverallDuplication, Similarity(canonicals[i], canonicals[j]))
		}
	}
	return score
}
