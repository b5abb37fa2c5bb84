package gates

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shipit/internal/boundaries/out/mocks"
	"github.com/bnema/shipit/internal/domain"
)

type recorder struct {
	invoked []string
}

func (r *recorder) gate(name string, required bool, exitCode int, output string) GateSpec {
	return GateSpec{
		Name:     name,
		Required: required,
		Invoke: func(context.Context) (int, string, error) {
			r.invoked = append(r.invoked, name)
			return exitCode, output, nil
		},
	}
}

func threshold(v float64) *float64 { return &v }

func TestRunner_FailFastStopsAtFirstRequiredFailure(t *testing.T) {
	rec := &recorder{}
	gates := []GateSpec{
		rec.gate("test", true, 0, "ok"),
		rec.gate("lint", true, 1, "E501 line too long"),
		rec.gate("typecheck", true, 0, "Success"),
	}

	report := NewRunner().Run(context.Background(), gates, domain.FailFast)

	require.Len(t, report, 2)
	assert.Equal(t, []string{"test", "lint"}, rec.invoked)
	assert.Equal(t, domain.GatePass, report[0].Status)
	assert.Equal(t, domain.GateFail, report[1].Status)
	assert.Equal(t, "E501 line too long", report[1].Detail)
	assert.False(t, report.Passed())
}

func TestRunner_ContinueRunsEverything(t *testing.T) {
	rec := &recorder{}
	gates := []GateSpec{
		rec.gate("test", true, 0, "ok"),
		rec.gate("lint", true, 1, "E501"),
		rec.gate("typecheck", true, 0, "Success"),
	}

	report := NewRunner().Run(context.Background(), gates, domain.Continue)

	assert.Len(t, report, 3)
	assert.Equal(t, []string{"test", "lint", "typecheck"}, rec.invoked)
	assert.False(t, report.Passed())
}

func TestRunner_OptionalFailureDoesNotBlock(t *testing.T) {
	rec := &recorder{}
	gates := []GateSpec{
		rec.gate("test", true, 0, "ok"),
		rec.gate("dependencies", false, 1, "1 vulnerability found"),
		rec.gate("lint", true, 0, ""),
	}

	report := NewRunner().Run(context.Background(), gates, domain.FailFast)

	require.Len(t, report, 3)
	assert.Equal(t, domain.GateSkipped, report[1].Status)
	assert.True(t, report.Passed())
}

func TestRunner_CoverageThreshold(t *testing.T) {
	pattern := regexp.MustCompile(CoveragePattern)
	tests := []struct {
		name       string
		exitCode   int
		output     string
		wantStatus domain.GateStatus
		wantMetric *float64
	}{
		{
			name:       "below threshold with exit 0",
			output:     "Name    Stmts   Miss  Cover\nTOTAL     100     20    80%\n",
			wantStatus: domain.GateFail,
			wantMetric: threshold(80),
		},
		{
			name:       "at threshold",
			output:     "TOTAL     200     30    85%\n",
			wantStatus: domain.GatePass,
			wantMetric: threshold(85),
		},
		{
			name:       "fractional coverage",
			output:     "TOTAL     1000    20    97.95%\n",
			wantStatus: domain.GatePass,
			wantMetric: threshold(97.95),
		},
		{
			name:       "missing summary",
			output:     "no coverage data collected\n",
			wantStatus: domain.GateFail,
		},
		{
			name:       "tests failed but coverage fine",
			exitCode:   1,
			output:     "1 failed\nTOTAL     100     1    99%\n",
			wantStatus: domain.GateFail,
			wantMetric: threshold(99),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := GateSpec{
				Name:          "tests",
				Required:      true,
				MetricPattern: pattern,
				MinMetric:     threshold(85),
				Invoke: func(context.Context) (int, string, error) {
					return tt.exitCode, tt.output, nil
				},
			}
			report := NewRunner().Run(context.Background(), []GateSpec{gate}, domain.FailFast)
			require.Len(t, report, 1)
			assert.Equal(t, tt.wantStatus, report[0].Status)
			if tt.wantMetric == nil {
				assert.Nil(t, report[0].Metric)
			} else {
				require.NotNil(t, report[0].Metric)
				assert.InDelta(t, *tt.wantMetric, *report[0].Metric, 0.001)
			}
			assert.Equal(t, tt.wantStatus == domain.GatePass, report.Passed())
		})
	}
}

func TestRunner_InvokeErrors(t *testing.T) {
	missing := GateSpec{
		Name: "dependencies",
		Invoke: func(context.Context) (int, string, error) {
			return -1, "", domain.ErrToolNotFound
		},
	}
	broken := GateSpec{
		Name:     "typecheck",
		Required: true,
		Invoke: func(context.Context) (int, string, error) {
			return -1, "", errors.New("exec format error")
		},
	}

	report := NewRunner().Run(context.Background(), []GateSpec{missing, broken}, domain.Continue)
	require.Len(t, report, 2)
	assert.Equal(t, domain.GateSkipped, report[0].Status)
	assert.Equal(t, domain.GateFail, report[1].Status)
	assert.Contains(t, report[1].Detail, "exec format error")
}

func TestRunner_CancelledContext(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewRunner().Run(ctx, []GateSpec{rec.gate("test", true, 0, "")}, domain.Continue)
	require.Len(t, report, 1)
	assert.Equal(t, domain.GateFail, report[0].Status)
	assert.Empty(t, rec.invoked)
}

func TestFromConfig(t *testing.T) {
	runner := mocks.NewMockCommandRunner(t)
	runner.On("Run", mock.Anything, domain.Command{
		Name: "python",
		Args: []string{"-m", "pytest", "--cov", "--cov-report=term"},
		Dir:  "/work",
	}).Return(domain.CommandResult{ExitCode: 0, Stdout: "TOTAL   10   0   100%\n"}, nil)

	specs, err := FromConfig(DefaultBattery(0), runner, "/work")
	require.NoError(t, err)
	require.Len(t, specs, 6)
	assert.Equal(t, "tests", specs[0].Name)
	require.NotNil(t, specs[0].MinMetric)
	assert.Equal(t, DefaultCoverageThreshold, *specs[0].MinMetric)
	assert.False(t, specs[5].Required)

	report := NewRunner().Run(context.Background(), specs[:1], domain.FailFast)
	require.Len(t, report, 1)
	assert.Equal(t, domain.GatePass, report[0].Status)
}

func TestFromConfigRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		cfg  GateConfig
	}{
		{"no command", GateConfig{Name: "lint"}},
		{"bad pattern", GateConfig{Name: "tests", Command: []string{"pytest"}, MetricPattern: "("}},
		{"no capture group", GateConfig{Name: "tests", Command: []string{"pytest"}, MetricPattern: `TOTAL \d+%`}},
		{"threshold without pattern", GateConfig{Name: "tests", Command: []string{"pytest", "--cov"}, Threshold: 85}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig([]GateConfig{tt.cfg}, mocks.NewMockCommandRunner(t), ".")
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
		})
	}
}
