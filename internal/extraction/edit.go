package extraction

import "encoding/json"

// EditableFields are the only record fields a reviewer may overwrite.
var EditableFields = []string{"merchant", "date", "total", "model", "store_number"}

// Edit is a set of reviewer corrections keyed by field name. A present key
// with a nil value clears the field.
type Edit map[string]*string

// NewEdit keeps the whitelisted fields of a decoded request body. Values are
// read with the same rules as model output.
func NewEdit(body map[string]json.RawMessage) Edit {
	edit := make(Edit)
	for _, field := range EditableFields {
		raw, ok := body[field]
		if !ok {
			continue
		}
		edit[field] = stringField(raw)
	}
	return edit
}

// Empty reports whether the edit changes nothing.
func (e Edit) Empty() bool {
	return len(e) == 0
}

// ApplyEdit overwrites the edited fields of a serialized record and returns
// the new serialization. Scores are carried over untouched; a record that
// does not decode is treated as empty.
func ApplyEdit(existing *string, edit Edit) string {
	var rec Record
	if existing != nil {
		if parsed, err := ParseRecord(*existing); err == nil {
			rec = parsed
		}
	}

	targets := map[string]**string{
		"merchant":     &rec.Merchant,
		"date":         &rec.Date,
		"total":        &rec.Total,
		"model":        &rec.Model,
		"store_number": &rec.StoreNumber,
	}
	for field, value := range edit {
		if dst, ok := targets[field]; ok {
			*dst = value
		}
	}
	return rec.Text()
}
