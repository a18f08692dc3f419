package events

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/golang/snappy"
)

// runTimestampSuffix matches the `<scenario>_YYYYMMDD_HHMMSS` run naming
// convention used by the experiment matrix.
var runTimestampSuffix = regexp.MustCompile(`^(.*)_\d{8}_\d{6}$`)

// TraceReader wraps an open trace file, transparently decompressing
// snappy-framed traces (.sz suffix).
type TraceReader struct {
	io.Reader
	file *os.File
}

// OpenTrace opens a trace file for streaming. A missing file is the one fatal
// input error in the pipeline and is returned as-is.
func OpenTrace(path string) (*TraceReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}

	var r io.Reader = file
	if strings.HasSuffix(path, ".sz") {
		r = snappy.NewReader(file)
	}
	return &TraceReader{Reader: r, file: file}, nil
}

// Close closes the underlying file
func (t *TraceReader) Close() error {
	return t.file.Close()
}

// RunIDFromPath derives the run id from a trace file name: the stem with the
// compression suffix and the `_COOJA` marker removed.
func RunIDFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".sz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, "_COOJA", "")
}

// ScenarioFromRunID strips the trailing run timestamp from a run id. Run ids
// without the timestamp suffix are their own scenario.
func ScenarioFromRunID(runID string) string {
	if m := runTimestampSuffix.FindStringSubmatch(runID); m != nil {
		return m[1]
	}
	return runID
}
