package build

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	appLog "catersite/internal/log"
)

// Level grades a dataset outcome.
type Level int

const (
	LevelSuccess Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "ok"
	case LevelWarning:
		return "warning"
	default:
		return "error"
	}
}

// Classify grades a source tag. Live sources are successes; missing
// configuration and empty upstreams are warnings; anything else means an
// upstream failed and a fallback was written.
func Classify(source string) Level {
	switch source {
	case "sheet", "sheet-api", "drive", "calendar-api", "calendar-ics":
		return LevelSuccess
	case "missing-config", "fallback-empty", "drive-empty", "calendar-empty":
		return LevelWarning
	default:
		return LevelError
	}
}

// Result is the outcome of one dataset.
type Result struct {
	Dataset string
	Source  string
	Level   Level
	Count   int
	Path    string
	// Err is the upstream or write error behind a non-success level.
	Err error
	// Problems are validation findings on the written data.
	Problems []error
}

func newResult(dataset, source string, count int, err error) Result {
	return Result{Dataset: dataset, Source: source, Level: Classify(source), Count: count, Err: err}
}

func (r Result) writeFailed(path string, err error) Result {
	appLog.Error("failed to write dataset", err, "dataset", r.Dataset, "path", path)
	r.Level = LevelError
	r.Err = fmt.Errorf("write %s: %w", path, err)
	return r
}

// Report collects the results of one build.
type Report struct {
	Results  []Result
	Duration time.Duration
}

// Level is the worst level over all results. Validation problems count as
// warnings.
func (r Report) Level() Level {
	worst := LevelSuccess
	for _, res := range r.Results {
		lvl := res.Level
		if len(res.Problems) > 0 && lvl < LevelWarning {
			lvl = LevelWarning
		}
		if lvl > worst {
			worst = lvl
		}
	}
	return worst
}

// Failed reports whether the build should exit non-zero. Errors fail only
// in strict mode, like warnings; a lenient build always succeeds because
// every file was written with a fallback.
func (r Report) Failed(strict bool) bool {
	return strict && r.Level() != LevelSuccess
}

// Summary prints one line per dataset plus its problems.
func (r Report) Summary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tSOURCE\tCOUNT\tSTATUS")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Dataset, res.Source, res.Count, res.Level)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, res := range r.Results {
		if res.Err != nil {
			fmt.Fprintf(w, "  %s: %v\n", res.Dataset, res.Err)
		}
		for _, p := range res.Problems {
			fmt.Fprintf(w, "  %s: %v\n", res.Dataset, p)
		}
	}
	_, err := fmt.Fprintf(w, "build %s in %s\n", r.Level(), r.Duration.Round(time.Millisecond))
	return err
}
