package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Normalize returns a copy of rec with every key and value lower-cased and
// trimmed, so comparisons are case-insensitive. The input is not modified.
//
// When several keys normalize to the same name, a key already in
// normalized form wins; otherwise the lowest key in byte order does.
func Normalize(rec RawRecord) RawRecord {
	out := make(RawRecord, len(rec))
	canonical := make(map[string]bool, len(rec))
	for _, k := range slices.Sorted(maps.Keys(rec)) {
		name := normalizeText(k)
		isCanonical := name == k
		if _, taken := out[name]; taken && (canonical[name] || !isCanonical) {
			continue
		}
		out[name] = normalizeText(rec[k])
		canonical[name] = isCanonical
	}
	return out
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CoerceRecord converts a decoded JSON object into a RawRecord.
// Numbers keep their literal text when decoded with UseNumber. Null values
// are dropped so the field is treated as missing.
func CoerceRecord(obj map[string]any) RawRecord {
	rec := make(RawRecord, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		case float64:
			rec[k] = fmt.Sprintf("%v", val)
		default:
			rec[k] = fmt.Sprint(val)
		}
	}
	return rec
}
