package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedOutput is reported by a parsing tier that could not read the
// model output as a receipt object. The cascade recovers from it.
var ErrMalformedOutput = errors.New("malformed model output")

// Record is the structured form of one receipt. Serialized, it always has
// exactly these seven keys and both scores are integers.
type Record struct {
	Merchant         *string `json:"merchant"`
	Date             *string `json:"date"`
	Total            *string `json:"total"`
	Model            *string `json:"model"`
	StoreNumber      *string `json:"store_number"`
	ConfidenceScore  int     `json:"confidence_score"`
	DuplicationScore int     `json:"duplication_score"`
}

// Text returns the serialized record.
func (r Record) Text() string {
	r.ConfidenceScore = clampScore(r.ConfidenceScore)
	r.DuplicationScore = clampScore(r.DuplicationScore)
	data, err := json.Marshal(r)
	if err != nil {
		// Only strings and ints are marshaled.
		panic(fmt.Sprintf("marshaling record: %v", err))
	}
	return string(data)
}

// Canonical returns the text used to compare two receipts: the non-empty
// merchant, date, total and store_number values joined by single spaces.
func (r Record) Canonical() string {
	parts := make([]string, 0, 4)
	for _, v := range []*string{r.Merchant, r.Date, r.Total, r.StoreNumber} {
		if v == nil {
			continue
		}
		if s := strings.TrimSpace(*v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ParseRecord reads a serialized record leniently. Field values that are
// strings are kept, numbers keep their literal text, anything else is null.
// Scores default to 0 and are clamped to 0..100. No normalization is applied.
func ParseRecord(data string) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if fields == nil {
		return Record{}, fmt.Errorf("%w: not an object", ErrMalformedOutput)
	}
	return Record{
		Merchant:         stringField(fields["merchant"]),
		Date:             stringField(fields["date"]),
		Total:            stringField(fields["total"]),
		Model:            stringField(fields["model"]),
		StoreNumber:      stringField(fields["store_number"]),
		ConfidenceScore:  scoreField(fields["confidence_score"]),
		DuplicationScore: scoreField(fields["duplication_score"]),
	}, nil
}

func stringField(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		lit := n.String()
		return &lit
	}
	return nil
}

func scoreField(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return clampFloat(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return clampFloat(f)
	default:
		return 0
	}
}

func clampFloat(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 100 {
		return 100
	}
	return int(math.Trunc(f))
}

func clampScore(n int) int {
	return max(0, min(100, n))
}
