package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/Veraticus/rofr-ledger/internal/parser"
	"github.com/Veraticus/rofr-ledger/internal/quality"
	"github.com/charmbracelet/lipgloss"
)

// RenderTable lays rows out in aligned columns under a styled header.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = TableCellStyle.Width(widths[i] + 2).Render(h)
	}
	lines := []string{TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...))}

	for _, row := range rows {
		cells = cells[:0]
		for i := range headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cells = append(cells, TableCellStyle.Width(widths[i]+2).Render(v))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(lines, "\n")
}

// ContractHeaders labels the columns produced by ContractRow.
var ContractHeaders = []string{"Sent", "User", "Resort", "Points", "$/pt", "Use Year", "Result", "Decided"}

// ContractRow renders the columns of one contract shown by list and parse.
func ContractRow(c model.ContractEntry) []string {
	decided := ""
	if c.HasResultDate() {
		decided = c.ResultDate.Format(model.DateLayout)
	}
	resort := c.ResortCode
	if !c.ResortRecognized {
		resort = WarningStyle.Render(resort + "?")
	}
	return []string{
		c.SentDate.Format(model.DateLayout),
		c.Username,
		resort,
		fmt.Sprintf("%d", c.Points),
		"$" + c.PricePerPoint.StringFixed(2),
		c.UseYear,
		renderResult(c.Result),
		decided,
	}
}

func renderResult(r model.Result) string {
	switch r {
	case model.ResultTaken:
		return ErrorStyle.Render(string(r))
	case model.ResultPassed:
		return SuccessStyle.Render(string(r))
	default:
		return SubtleStyle.Render(string(r))
	}
}

// RenderSummary renders the per-run counters in a box.
func RenderSummary(title string, s parser.Summary, skippedPosts int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", BoldStyle.Render("Lines"))
	fmt.Fprintf(&b, "  • Read: %d\n", s.Lines)
	fmt.Fprintf(&b, "  • Matched: %d\n", s.Matched)
	fmt.Fprintf(&b, "  • No match: %d (near misses: %d)\n", s.NoMatch, s.NearMiss)
	fmt.Fprintf(&b, "  • Dropped: %d (missing field %d, bad date %d, bad number %d)\n",
		s.Dropped(), s.DroppedMissingField, s.DroppedUnparseableDate, s.DroppedUnparseableNumber)
	fmt.Fprintf(&b, "  • Filtered by date: %d\n", s.Filtered)
	if skippedPosts > 0 {
		fmt.Fprintf(&b, "  • Posts outside the date window: %d\n", skippedPosts)
	}
	fmt.Fprintf(&b, "\n%s\n", BoldStyle.Render("Records"))
	fmt.Fprintf(&b, "  • Inserted: %d\n", s.Inserted)
	fmt.Fprintf(&b, "  • Updated: %d\n", s.Updated)
	fmt.Fprintf(&b, "  • Unchanged: %d\n", s.Unchanged)
	fmt.Fprintf(&b, "  • Rejected: %d\n", s.MergeRejected)
	if s.FlaggedInconsistent > 0 {
		b.WriteString("  • " + WarningStyle.Render(fmt.Sprintf("Date-inconsistent: %d", s.FlaggedInconsistent)) + "\n")
	}
	if s.MergeAnomalies > 0 {
		b.WriteString("  • " + WarningStyle.Render(fmt.Sprintf("Merge anomalies: %d", s.MergeAnomalies)) + "\n")
	}
	return RenderBox(title, strings.TrimRight(b.String(), "\n"))
}

// RenderQuality renders flag counts, resort price ranges and the first limit issues.
func RenderQuality(r quality.Report, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checked %d contracts\n", r.Checked)

	flags := make([]string, 0, len(r.Counts))
	for f := range r.Counts {
		flags = append(flags, string(f))
	}
	sort.Strings(flags)
	if len(flags) == 0 {
		b.WriteString(FormatSuccess("No issues found") + "\n")
	}
	for _, f := range flags {
		fmt.Fprintf(&b, "  • %s: %d\n", f, r.Counts[quality.Flag(f)])
	}

	if len(r.Ranges) > 0 {
		codes := make([]string, 0, len(r.Ranges))
		for code := range r.Ranges {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		rows := make([][]string, 0, len(codes))
		for _, code := range codes {
			rg := r.Ranges[code]
			rows = append(rows, []string{
				code,
				fmt.Sprintf("%d", rg.Samples),
				"$" + rg.Q1.StringFixed(2),
				"$" + rg.Q3.StringFixed(2),
			})
		}
		b.WriteString("\n" + RenderTable([]string{"Resort", "Samples", "Q1", "Q3"}, rows) + "\n")
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n")
		for i, issue := range r.Issues {
			if limit > 0 && i >= limit {
				b.WriteString(SubtleStyle.Render(fmt.Sprintf("  … %d more", len(r.Issues)-limit)) + "\n")
				break
			}
			fmt.Fprintf(&b, "  %s %s %s\n",
				WarningStyle.Render(string(issue.Flag)),
				issue.Entry.Username,
				SubtleStyle.Render(issue.Detail))
		}
	}
	return RenderBox("Data Quality", strings.TrimRight(b.String(), "\n"))
}
