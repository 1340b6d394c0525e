package extraction

import (
	"fmt"
	"strings"
)

// Tier names the strategy that produced a record.
type Tier string

const (
	TierDirectJSON  Tier = "direct_json"
	TierBraceRepair Tier = "brace_repair"
	TierHeuristic   Tier = "heuristic"
)

// heuristicDuplication is the duplication score the heuristic tier assigns
// when a message carries more than one attachment.
const heuristicDuplication = 50

// Result is the outcome of running the cascade on one model response.
type Result struct {
	Record Record
	Tier   Tier
}

// tierResult is either a record or the reason the tier could not produce one.
type tierResult struct {
	record Record
	err    error
}

type tier struct {
	name Tier
	run  func(raw string, multiple bool) tierResult
}

// cascade lists the parsing strategies in the order they are attempted.
var cascade = []tier{
	{name: TierDirectJSON, run: directJSON},
	{name: TierBraceRepair, run: braceRepair},
	{name: TierHeuristic, run: heuristic},
}

// Extract turns raw model output into a receipt record. It never fails: the
// heuristic tier accepts any text, including the empty string.
func Extract(raw string, multipleAttachments bool) Result {
	raw = stripContent(raw)
	var last error
	for _, t := range cascade {
		res := t.run(raw, multipleAttachments)
		if res.err == nil {
			return Result{Record: res.record, Tier: t.name}
		}
		last = res.err
	}
	// The heuristic tier always succeeds.
	panic(fmt.Sprintf("extraction cascade exhausted: %v", last))
}

func stripContent(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "content=") {
		text = strings.Trim(strings.TrimPrefix(text, "content="), `'"`)
	}
	return text
}

// StripWrapper removes the wrappers model clients put around a response:
// a content= prefix with its quotes, and markdown code fences.
func StripWrapper(raw string) string {
	text := stripContent(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

func directJSON(raw string, multiple bool) tierResult {
	return fromJSON(StripWrapper(raw), multiple)
}

func braceRepair(raw string, multiple bool) tierResult {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return tierResult{err: fmt.Errorf("%w: no json braces found", ErrMalformedOutput)}
	}
	return fromJSON(raw[start:end+1], multiple)
}

func fromJSON(text string, multiple bool) tierResult {
	rec, err := ParseRecord(text)
	if err != nil {
		return tierResult{err: err}
	}
	rec.Merchant = NormalizeMerchant(rec.Merchant)
	if !multiple {
		rec.DuplicationScore = 0
	}
	return tierResult{record: rec}
}

func heuristic(raw string, multiple bool) tierResult {
	rec := Record{
		Merchant:    NormalizeMerchant(firstLine(raw)),
		Date:        MatchDate(raw),
		Total:       MatchTotal(raw),
		StoreNumber: MatchStore(raw),
	}

	found := 0
	for _, v := range []*string{rec.Merchant, rec.Date, rec.Total, rec.StoreNumber} {
		if v != nil {
			found++
		}
	}
	rec.ConfidenceScore = min(90, 20+15*found)
	if multiple {
		rec.DuplicationScore = heuristicDuplication
	}
	return tierResult{record: rec}
}

func firstLine(raw string) *string {
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return &line
		}
	}
	return nil
}
