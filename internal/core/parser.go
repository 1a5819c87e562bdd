package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// batchState is the per-call accumulator threaded through parseRow.
type batchState struct {
	seen    map[string]bool
	outcome ParseOutcome
}

// ParseBatch parses an uploaded CSV batch into accepted records and row
// errors. Rows are numbered from 1, excluding the header. Empty lines
// hold no cells and are skipped by the reader; a row of empty cells is
// numbered and rejected like any other invalid row. The same input always
// produces the same outcome.
func ParseBatch(data []byte) ParseOutcome {
	if len(bytes.TrimSpace(data)) == 0 {
		return ParseOutcome{FatalError: MsgEmptyContent}
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParseOutcome{FatalError: MsgEmptyContent}
		}
		return ParseOutcome{FatalError: MsgParseErrorPrefix + err.Error()}
	}
	for i := range header {
		header[i] = normalizeText(header[i])
	}

	state := &batchState{seen: make(map[string]bool)}
	row := 0
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ParseOutcome{
				FatalError: MsgParseErrorPrefix + err.Error(),
				RowErrors:  state.outcome.RowErrors,
			}
		}
		row++
		parseRow(state, row, rowToRecord(header, cells))
	}

	if len(state.outcome.Records) == 0 {
		state.outcome.FatalError = MsgNoValidRecords
	}
	return state.outcome
}

// parseRow runs normalize, validate and in-batch dedup for one data row.
func parseRow(state *batchState, row int, raw RawRecord) {
	rec := Normalize(raw)

	if result := ValidateRecord(rec); !result.Valid {
		state.outcome.RowErrors = append(state.outcome.RowErrors, RowError{
			Row:    row,
			Data:   rec,
			Reason: strings.Join(result.Errors, ", "),
		})
		return
	}

	key := RecordKey(rec)
	if state.seen[key] {
		state.outcome.RowErrors = append(state.outcome.RowErrors, RowError{
			Row:    row,
			Data:   rec,
			Reason: ReasonDuplicateInBatch,
		})
		return
	}
	state.seen[key] = true
	state.outcome.Records = append(state.outcome.Records, ParsedRecord{Row: row, Fields: rec})
}

// rowToRecord maps cells onto header names. Cells past the header and
// blank header names are dropped; missing trailing cells stay absent.
func rowToRecord(header, cells []string) RawRecord {
	rec := make(RawRecord, len(header))
	for i, name := range header {
		if i >= len(cells) {
			break
		}
		if name == "" {
			continue
		}
		if _, dup := rec[name]; dup {
			continue
		}
		rec[name] = cells[i]
	}
	return rec
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
