package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/bnema/shipit/internal/adapters/in/cli/ui/components"
	"github.com/bnema/shipit/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/shipit/internal/domain"
)

var cliWriteLine = func(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

var cliWritef = func(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func cliRenderTitle(msg string) string {
	return styles.Theme.Title.Render(msg)
}

func cliRenderMuted(msg string) string {
	return styles.Theme.Muted.Render(msg)
}

func cliRenderMeta(label, value string) string {
	return styles.Theme.Bold.Render(label) + " " + styles.Theme.Muted.Render(value)
}

// renderFailure prints the one-line cause, the state the run stopped in and
// the suggested next command.
func renderFailure(w io.Writer, state string, err error) {
	kind := domain.KindOf(err)
	_ = cliWriteLine(w, styles.RenderError(fmt.Sprintf("%s: %v", kind, err)))
	if state != "" {
		_ = cliWriteLine(w, cliRenderMeta("state:", state))
	}
	if hint := domain.HintOf(err); hint != "" {
		_ = cliWriteLine(w, cliRenderMeta("next:", hint))
	}
}

func renderRelease(w io.Writer, rec *domain.ReleaseRecord) {
	title := fmt.Sprintf("Release %s %s -> %s (%s)", rec.Package, rec.PreviousVersion, rec.Version, rec.Target)
	if rec.DryRun {
		title += " [dry run]"
	}
	_ = cliWriteLine(w, cliRenderTitle(title))
	_ = cliWriteLine(w, cliRenderMeta("state:", "")+styles.RenderBadge(string(rec.State), rec.State.Failed(), rec.State.Terminal()))
	if rec.GitCommit != "" {
		_ = cliWriteLine(w, cliRenderMeta("commit:", shortCommit(rec.GitCommit)))
	}

	if len(rec.GateReport) > 0 {
		_ = cliWriteLine(w, "")
		_ = cliWriteLine(w, styles.Theme.Heading.Render("Quality gates"))
		_ = cliWriteLine(w, components.GateTable(rec.GateReport))
	}
	if len(rec.Artifacts) > 0 {
		_ = cliWriteLine(w, "")
		_ = cliWriteLine(w, styles.Theme.Heading.Render("Artifacts"))
		_ = cliWriteLine(w, components.ArtifactTable(rec.Artifacts))
	}
	_ = cliWriteLine(w, "")

	switch {
	case rec.DryRun && rec.State == domain.StateBuilt:
		_ = cliWriteLine(w, styles.RenderInfo(fmt.Sprintf("would publish %d artifacts to %s and tag %s",
			len(rec.Artifacts), rec.Target, rec.TagName)))
	case rec.State == domain.StateTagged:
		_ = cliWriteLine(w, styles.RenderSuccess(fmt.Sprintf("%s %s published to %s and tagged %s",
			rec.Package, rec.Version, rec.Target, rec.TagName)))
		if !rec.Verified {
			_ = cliWriteLine(w, styles.RenderWarning("registry does not list the new version yet"))
		}
	}
}

func renderRollback(w io.Writer, rec *domain.RollbackRecord) {
	_ = cliWriteLine(w, cliRenderTitle(fmt.Sprintf("Rollback %s %s -> %s", rec.Package, rec.FromVersion, rec.ToVersion)))
	_ = cliWriteLine(w, cliRenderMeta("state:", "")+styles.RenderBadge(string(rec.State), false, rec.State.Terminal()))
	_ = cliWriteLine(w, "")

	steps := []struct {
		label string
		ok    bool
		value string
	}{
		{"removed from registry", rec.RegistryRemoved, ""},
		{"rollback tag created", rec.TagCreated, rec.TagName},
		{"rollback tag pushed", rec.TagPushed, ""},
		{"incident issue filed", rec.IssueCreated, rec.IssueURL},
		{"user notice written", rec.NoticePath != "", rec.NoticePath},
		{"post-incident report written", rec.ReportPath != "", rec.ReportPath},
	}
	for _, step := range steps {
		line := step.label
		if step.value != "" {
			line += " " + cliRenderMuted(step.value)
		}
		if step.ok {
			_ = cliWriteLine(w, styles.RenderSuccess(line))
		} else {
			_ = cliWriteLine(w, styles.RenderWarning(line+" (not done)"))
		}
	}

	manual := rec.ManualSteps()
	if len(manual) == 0 {
		return
	}
	_ = cliWriteLine(w, "")
	_ = cliWriteLine(w, styles.Theme.Heading.Render("Manual follow-up"))
	for _, m := range manual {
		item := m.Description
		if m.Cause != "" {
			item += cliRenderMuted(" (" + m.Cause + ")")
		}
		_ = cliWriteLine(w, styles.RenderChecklistItem(item))
	}
}

func renderVersions(w io.Writer, idx domain.DeployedVersionIndex) {
	if idx.Len() == 0 {
		_ = cliWriteLine(w, cliRenderMuted(fmt.Sprintf("no published versions of %s", idx.Package)))
		return
	}
	_ = cliWriteLine(w, cliRenderTitle(fmt.Sprintf("Published versions of %s", idx.Package)))
	if latest, ok := idx.Latest(); ok {
		_ = cliWriteLine(w, cliRenderMeta("latest:", latest.String()))
	}
	_ = cliWriteLine(w, components.VersionTable(idx))
}

func shortCommit(sha string) string {
	sha = strings.TrimSpace(sha)
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
