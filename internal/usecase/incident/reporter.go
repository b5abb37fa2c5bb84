// Package incident renders the documents produced by a rollback: the
// tracking issue, the user notice and the post-incident report.
package incident

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/pkg/duration"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

// Document kinds, used in file names.
const (
	KindNotice = "notice"
	KindReport = "post-incident"
)

// Config tunes the rendered text.
type Config struct {
	// ETA is the expected time until a fixed release is available.
	ETA     time.Duration
	Contact string
	Labels  []string
}

// DefaultConfig returns a 24 hour ETA and the "rollback" label.
func DefaultConfig() Config {
	return Config{ETA: duration.Day, Labels: []string{"rollback", "incident"}}
}

// Reporter renders incident documents. Rendering has no side effects.
type Reporter struct {
	cfg       Config
	templates *template.Template
}

// NewReporter parses the embedded templates.
func NewReporter(cfg Config) (*Reporter, error) {
	tmpl, err := template.New("incident").Funcs(template.FuncMap{
		"utc":      func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"humanize": duration.Humanize,
		"check": func(ok bool) string {
			if ok {
				return "x"
			}
			return " "
		},
		"outcome": func(ok bool) string {
			if ok {
				return "done"
			}
			return "FAILED"
		},
	}).ParseFS(templateFS, "templates/*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse incident templates: %w", err)
	}
	return &Reporter{cfg: cfg, templates: tmpl}, nil
}

type view struct {
	Rec         *domain.RollbackRecord
	At          time.Time
	ETA         time.Duration
	Contact     string
	ManualSteps []domain.ManualStep
	Reason      string
	Outcome     string
}

func (r *Reporter) view(rec *domain.RollbackRecord, at time.Time) view {
	reason := strings.TrimSpace(rec.Reason)
	if reason == "" {
		reason = "not given"
	}
	steps := rec.ManualSteps()
	return view{
		Rec:         rec,
		At:          at,
		ETA:         r.cfg.ETA,
		Contact:     r.cfg.Contact,
		ManualSteps: steps,
		Reason:      reason,
		Outcome:     outcome(steps),
	}
}

// outcome summarizes a rollback for the report, which is written before the
// record reaches its final state.
func outcome(steps []domain.ManualStep) string {
	switch len(steps) {
	case 0:
		return "complete"
	case 1:
		return "complete, 1 manual follow-up"
	default:
		return fmt.Sprintf("complete, %d manual follow-ups", len(steps))
	}
}

func (r *Reporter) render(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// IssueBody renders the tracking issue filed for a rollback.
func (r *Reporter) IssueBody(rec *domain.RollbackRecord, at time.Time) (domain.Issue, error) {
	body, err := r.render("issue.md.tmpl", r.view(rec, at))
	if err != nil {
		return domain.Issue{}, err
	}
	return domain.Issue{
		Title:  fmt.Sprintf("Rollback: %s %s withdrawn, use %s", rec.Package, rec.FromVersion, rec.ToVersion),
		Body:   body,
		Labels: append([]string(nil), r.cfg.Labels...),
	}, nil
}

// UserNotice renders the markdown notice for package users.
func (r *Reporter) UserNotice(rec *domain.RollbackRecord, at time.Time) (string, error) {
	return r.render("notice.md.tmpl", r.view(rec, at))
}

// PostIncidentReport renders the report for maintainers, including a
// checklist of every side effect that still needs manual work.
func (r *Reporter) PostIncidentReport(rec *domain.RollbackRecord, at time.Time) (string, error) {
	return r.render("report.md.tmpl", r.view(rec, at))
}
