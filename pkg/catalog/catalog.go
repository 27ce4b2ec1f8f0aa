// Package catalog reads signal catalogs into model entries.
//
// Two formats are supported. The CSV format is the VSS catalog export, one
// signal per line:
//
//	path,id,element,type,unit,min,max,description,enum,sensor,actuator[,default]
//
// Enumerations are separated by spaces or slashes. An optional twelfth column
// carries the initial value. The YAML format lists the same fields under a
// top-level "signals" key.
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
)

// Entry is a catalog row.
type Entry = model.Entry

// Format identifies a catalog encoding.
type Format uint8

const (
	// FormatAuto detects the format from the content.
	FormatAuto Format = iota
	FormatCSV
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatYAML:
		return "yaml"
	}
	return "auto"
}

// FormatFor returns the format implied by a file name.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatAuto
}

// detectFormat looks at the first meaningful line. YAML catalogs start with
// a "signals:" key or a document marker; everything else is treated as CSV.
func detectFormat(data []byte) Format {
	for _, line := range bytes.Split(data, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || trimmed[0] == '#' {
			continue
		}
		if bytes.HasPrefix(trimmed, []byte("signals:")) || bytes.HasPrefix(trimmed, []byte("---")) {
			return FormatYAML
		}
		return FormatCSV
	}
	return FormatCSV
}

// Read parses a catalog in the given format.
func Read(r io.Reader, format Format) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if format == FormatAuto {
		format = detectFormat(data)
	}
	switch format {
	case FormatYAML:
		return ReadYAML(bytes.NewReader(data))
	default:
		return ReadCSV(bytes.NewReader(data))
	}
}

// LoadFile reads a catalog file, choosing the format by extension.
func LoadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Read(f, FormatFor(path))
}

// Name returns the catalog name advertised to peers: the file name without
// directory and extension.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
