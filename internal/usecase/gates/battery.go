package gates

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/internal/domain"
)

// DefaultCoverageThreshold is the minimum test coverage percentage.
const DefaultCoverageThreshold = 85.0

// CoveragePattern matches the TOTAL line of a coverage.py terminal report.
const CoveragePattern = `(?m)^TOTAL\s+.*?(\d+(?:\.\d+)?)%\s*$`

// GateConfig is the configured command of one gate.
type GateConfig struct {
	Name          string   `mapstructure:"name"`
	Command       []string `mapstructure:"command"`
	Required      bool     `mapstructure:"required"`
	MetricPattern string   `mapstructure:"metric_pattern"`
	Threshold     float64  `mapstructure:"threshold"`
}

// DefaultBattery returns the standard gate order: tests with coverage, type
// check, lint, format check, security scan and dependency audit.
func DefaultBattery(coverageThreshold float64) []GateConfig {
	if coverageThreshold <= 0 {
		coverageThreshold = DefaultCoverageThreshold
	}
	return []GateConfig{
		{
			Name:          "tests",
			Command:       []string{"python", "-m", "pytest", "--cov", "--cov-report=term"},
			Required:      true,
			MetricPattern: CoveragePattern,
			Threshold:     coverageThreshold,
		},
		{Name: "typecheck", Command: []string{"python", "-m", "mypy", "."}, Required: true},
		{Name: "lint", Command: []string{"python", "-m", "ruff", "check", "."}, Required: true},
		{Name: "format", Command: []string{"python", "-m", "black", "--check", "."}, Required: true},
		{Name: "security", Command: []string{"python", "-m", "bandit", "-r", ".", "-q"}, Required: true},
		{Name: "dependencies", Command: []string{"python", "-m", "pip_audit"}, Required: false},
	}
}

// FromConfig turns configured gates into runnable specs executed through
// runner inside workspace.
func FromConfig(configs []GateConfig, runner out.CommandRunner, workspace string) ([]GateSpec, error) {
	specs := make([]GateSpec, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Name == "" || len(cfg.Command) == 0 {
			return nil, domain.Configuration("load gates",
				fmt.Errorf("%w: gate %q needs a name and a command", domain.ErrInvalidConfig, cfg.Name),
				"fix the [[gates.battery]] entries in shipit.toml")
		}
		spec := GateSpec{
			Name:     cfg.Name,
			Required: cfg.Required,
			Invoke:   commandInvoker(runner, workspace, cfg.Command),
		}
		if cfg.MetricPattern != "" {
			re, err := regexp.Compile(cfg.MetricPattern)
			if err != nil {
				return nil, domain.Configuration("load gates",
					fmt.Errorf("%w: gate %q metric pattern: %v", domain.ErrInvalidConfig, cfg.Name, err),
					"fix metric_pattern in shipit.toml")
			}
			if re.NumSubexp() < 1 {
				return nil, domain.Configuration("load gates",
					fmt.Errorf("%w: gate %q metric pattern has no capture group", domain.ErrInvalidConfig, cfg.Name),
					"wrap the number in metric_pattern in parentheses")
			}
			spec.MetricPattern = re
		}
		if cfg.Threshold > 0 {
			if spec.MetricPattern == nil {
				return nil, domain.Configuration("load gates",
					fmt.Errorf("%w: gate %q has a threshold but no metric pattern", domain.ErrInvalidConfig, cfg.Name),
					"set metric_pattern for gates with a threshold")
			}
			threshold := cfg.Threshold
			spec.MinMetric = &threshold
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func commandInvoker(runner out.CommandRunner, workspace string, argv []string) InvokeFunc {
	return func(ctx context.Context) (int, string, error) {
		res, err := runner.Run(ctx, domain.Command{Name: argv[0], Args: argv[1:], Dir: workspace})
		if err != nil {
			return res.ExitCode, res.Combined(), err
		}
		return res.ExitCode, res.Combined(), nil
	}
}
