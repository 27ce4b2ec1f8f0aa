package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
)

// CSV column positions.
const (
	colPath = iota
	colID
	colElement
	colType
	colUnit
	colMin
	colMax
	colDescription
	colEnum
	colSensor
	colActuator
	colDefault

	minColumns = colActuator + 1
)

// ReadCSV parses a VSS CSV export. Blank lines and lines starting with '#'
// are skipped, as is a header row whose first field is "path".
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var entries []Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &model.LoadError{Line: pe.Line, Err: pe.Err}
			}
			return nil, &model.LoadError{Err: err}
		}
		line, _ := cr.FieldPos(0)
		if len(entries) == 0 && strings.EqualFold(strings.TrimSpace(rec[colPath]), "path") {
			continue
		}
		e, err := parseRecord(rec)
		if err != nil {
			return nil, &model.LoadError{Line: line, Path: strings.TrimSpace(rec[colPath]), Err: err}
		}
		e.Line = line
		entries = append(entries, e)
	}
}

func parseRecord(rec []string) (Entry, error) {
	if len(rec) < minColumns {
		return Entry{}, fmt.Errorf("malformed row: %d columns, want at least %d", len(rec), minColumns)
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	e := Entry{
		Path:        rec[colPath],
		Element:     rec[colElement],
		Type:        rec[colType],
		Unit:        rec[colUnit],
		Min:         rec[colMin],
		Max:         rec[colMax],
		Description: rec[colDescription],
		Enum:        splitEnum(rec[colEnum]),
	}
	if rec[colID] != "" {
		id, err := strconv.ParseUint(rec[colID], 10, 32)
		if err != nil {
			return Entry{}, fmt.Errorf("id %q: %w", rec[colID], err)
		}
		e.ID = uint32(id)
		e.HasID = true
	}
	if len(rec) > colDefault {
		e.Default = rec[colDefault]
	}
	return e, nil
}

func splitEnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '/'
	})
}
