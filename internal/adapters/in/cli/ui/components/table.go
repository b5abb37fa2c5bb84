package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/bnema/shipit/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/pkg/bytesize"
)

const ellipsis = "..."

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.ColorPrimary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(styles.ColorText).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(styles.ColorBorder)
)

// column is a table header. A positive width fixes the column and truncates
// longer cells.
type column struct {
	title string
	width int
}

func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = fitCell(c.title, c.width)
	}
	fitted := make([][]string, len(rows))
	for r, row := range rows {
		fitted[r] = make([]string, len(row))
		for c, cell := range row {
			if c < len(cols) {
				cell = fitCell(cell, cols[c].width)
			}
			fitted[r][c] = cell
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(fitted...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cellStyle
			if row == table.HeaderRow {
				s = headerStyle
			}
			if col >= 0 && col < len(cols) && cols[col].width > 0 {
				// padding sits outside the content width
				w := cols[col].width + s.GetHorizontalPadding()
				s = s.Width(w).MaxWidth(w)
			}
			return s
		}).
		String()
}

// fitCell cuts value to width display columns, ending in an ellipsis.
// Styled values are left alone since their escape codes have no width.
func fitCell(value string, width int) string {
	if width <= 0 || strings.Contains(value, "\x1b[") || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= len(ellipsis) {
		return ellipsis[:width]
	}

	var b strings.Builder
	used := 0
	for g := uniseg.NewGraphemes(value); g.Next(); {
		w := runewidth.StringWidth(g.Str())
		if used+w > width-len(ellipsis) {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	return b.String() + ellipsis
}

// GateTable renders a gate report in run order.
func GateTable(report domain.GateReport) string {
	rows := make([][]string, 0, len(report))
	for _, res := range report {
		kind := "optional"
		if res.Required {
			kind = "required"
		}
		metric := ""
		if res.Metric != nil {
			metric = fmt.Sprintf("%.1f", *res.Metric)
		}
		rows = append(rows, []string{
			res.Name,
			styles.RenderGateStatus(res.Status),
			kind,
			metric,
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	return renderTable([]column{{title: "Gate"}, {title: "Status"}, {title: "Kind"}, {title: "Metric"}, {title: "Took"}}, rows)
}

// ArtifactTable renders built distributions with a shortened checksum.
func ArtifactTable(artifacts []domain.BuildArtifact) string {
	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		rows = append(rows, []string{a.Filename(), string(a.Kind), bytesize.Format(a.SizeBytes), a.Checksum})
	}
	return renderTable([]column{{title: "Artifact"}, {title: "Kind"}, {title: "Size"}, {title: "SHA-256", width: 19}}, rows)
}

// VersionTable renders published versions newest first. The two newest
// are marked as latest and as the default rollback target.
func VersionTable(idx domain.DeployedVersionIndex) string {
	versions := idx.Versions()
	rows := make([][]string, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		note := ""
		switch len(versions) - 1 - i {
		case 0:
			note = "latest"
		case 1:
			note = "rollback target"
		}
		rows = append(rows, []string{versions[i].String(), note})
	}
	return renderTable([]column{{title: "Version"}, {title: ""}}, rows)
}
