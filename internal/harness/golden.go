package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/convoy/internal/canon"
)

// GoldenDir is where golden traces live, relative to the test package.
const GoldenDir = "testdata/golden"

// TraceBytes renders a trace as canonical JSON, one event per line, with a
// header line naming the scenario.
func TraceBytes(scenarioName string, trace []TraceEvent) ([]byte, error) {
	var buf bytes.Buffer
	header, err := canon.Marshal(map[string]any{"scenario_name": scenarioName, "events": len(trace)})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, ev := range trace {
		line, err := canon.Marshal(map[string]any{
			"seq":     ev.Seq,
			"sent_at": ev.SentAt,
			"from":    ev.From,
			"to":      ev.To,
			"kind":    ev.Kind,
			"body":    ev.Body,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func newGoldie(t *testing.T, opts []goldie.Option) *goldie.Goldie {
	base := []goldie.Option{
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	}
	return goldie.New(t, append(base, opts...)...)
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := TraceBytes(scenarioName, result.Trace)
	if err != nil {
		return err
	}
	newGoldie(t, opts).Assert(t, scenarioName, data)
	return nil
}

// UpdateGolden writes result's trace as the golden file for scenarioName.
func UpdateGolden(t *testing.T, scenarioName string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := TraceBytes(scenarioName, result.Trace)
	if err != nil {
		return err
	}
	return newGoldie(t, opts).Update(t, scenarioName, data)
}
