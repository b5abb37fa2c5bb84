// Package gates runs the ordered battery of quality gates before a release.
package gates

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

// detailLines bounds how much tool output is kept in a gate result.
const detailLines = 20

// InvokeFunc runs a gate's tool and returns its exit code and output.
type InvokeFunc func(ctx context.Context) (exitCode int, output string, err error)

// GateSpec describes one gate. When MetricPattern is set its first capture
// group is parsed as the gate's numeric metric, and MinMetric, if set, is the
// lowest passing value.
type GateSpec struct {
	Name          string
	Required      bool
	Invoke        InvokeFunc
	MetricPattern *regexp.Regexp
	MinMetric     *float64
}

// Runner executes gates in order. It has no side effects of its own.
type Runner struct {
	now func() time.Time
}

// NewRunner creates a gate runner.
func NewRunner() *Runner {
	return &Runner{now: time.Now}
}

// Run executes gates in order and returns their report. In FailFast mode it
// returns right after the first failing required gate.
func (r *Runner) Run(ctx context.Context, gates []GateSpec, mode domain.GateMode) domain.GateReport {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "RunGates",
	})
	log := logging.FromCtx(ctx)

	report := make(domain.GateReport, 0, len(gates))
	for _, gate := range gates {
		if err := ctx.Err(); err != nil {
			report = append(report, domain.GateResult{
				Name:     gate.Name,
				Required: gate.Required,
				Status:   domain.GateFail,
				Detail:   err.Error(),
				ExitCode: -1,
			})
			return report
		}

		result := r.runOne(ctx, gate)
		report = append(report, result)

		event := log.Info()
		if result.Status != domain.GatePass {
			event = log.Warn()
		}
		event.Str(logging.FieldGate, gate.Name).
			Str(logging.FieldStatus, string(result.Status)).
			Dur(logging.FieldDuration, result.Duration).
			Msg("gate finished")

		if mode == domain.FailFast && gate.Required && result.Status != domain.GatePass {
			return report
		}
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, gate GateSpec) domain.GateResult {
	result := domain.GateResult{Name: gate.Name, Required: gate.Required}
	start := r.now()
	exitCode, output, err := gate.Invoke(ctx)
	result.Duration = r.now().Sub(start)
	result.ExitCode = exitCode

	fail := func(detail string) domain.GateResult {
		// optional gates only warn
		if gate.Required {
			result.Status = domain.GateFail
		} else {
			result.Status = domain.GateSkipped
		}
		result.Detail = detail
		return result
	}

	if err != nil {
		if errors.Is(err, domain.ErrToolNotFound) && !gate.Required {
			return fail("tool not installed")
		}
		return fail(err.Error())
	}

	if gate.MetricPattern != nil {
		metric, ok := parseMetric(gate.MetricPattern, output)
		if ok {
			result.Metric = &metric
		}
		if exitCode == 0 && !ok {
			return fail(fmt.Sprintf("%v: pattern %q", domain.ErrMetricMissing, gate.MetricPattern.String()))
		}
		if ok && gate.MinMetric != nil && metric < *gate.MinMetric {
			return fail(fmt.Sprintf("metric %.1f is below threshold %.1f", metric, *gate.MinMetric))
		}
	}

	if exitCode != 0 {
		return fail(tail(output))
	}

	result.Status = domain.GatePass
	return result
}

func parseMetric(pattern *regexp.Regexp, output string) (float64, bool) {
	matches := pattern.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, false
	}
	// the summary line comes last in tool output
	last := matches[len(matches)-1]
	if len(last) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(last[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func tail(output string) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) > detailLines {
		lines = lines[len(lines)-detailLines:]
	}
	return strings.Join(lines, "\n")
}
