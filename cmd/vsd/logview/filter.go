package logview

import (
	"errors"
	"fmt"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
)

// RunFilter copies the matching events of the capture at path into a new
// capture file at output and returns how many were written.
func RunFilter(path, output string, opts Options) (int, error) {
	if output == "" {
		return 0, fmt.Errorf("%w: output file required", ErrInvalidFlag)
	}
	filter, err := opts.Filter()
	if err != nil {
		return 0, err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}

	count := 0
	for event, rerr := range reader.All() {
		if rerr != nil {
			return count, errors.Join(fmt.Errorf("failed to read event: %w", rerr), out.Close())
		}
		out.Log(event)
		count++
	}
	return count, out.Close()
}
