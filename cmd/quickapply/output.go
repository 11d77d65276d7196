package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/entrhq/quickapply/pkg/apply"
	"github.com/entrhq/quickapply/pkg/history"
	"github.com/entrhq/quickapply/pkg/login"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func outcomeStyle(o apply.Outcome) lipgloss.Style {
	switch o {
	case apply.OutcomeSubmitted:
		return successStyle
	case apply.OutcomeSkipped:
		return warnStyle
	default:
		return failStyle
	}
}

// printAttempt writes one summary line for an apply attempt.
func printAttempt(w io.Writer, a *apply.Attempt) {
	line := fmt.Sprintf("%s %s", outcomeStyle(a.Outcome).Render(string(a.Outcome)), a.JobURL)
	if a.Outcome != apply.OutcomeSubmitted {
		line += " " + mutedStyle.Render("("+string(a.Reason)+")")
	}
	fmt.Fprintln(w, line)
	if a.EvidencePath != "" {
		fmt.Fprintln(w, mutedStyle.Render("  evidence: "+a.EvidencePath))
	}
}

// printLogin writes the result of a login run.
func printLogin(w io.Writer, res *login.Result) {
	if res.State == login.StateSuccess {
		fmt.Fprintf(w, "%s verified by %s\n", successStyle.Render("signed in"), res.VerifiedBy)
		fmt.Fprintln(w, mutedStyle.Render("  session: "+res.StatePath))
		return
	}
	fmt.Fprintln(w, failStyle.Render("login failed"))
	if res.EvidencePath != "" {
		fmt.Fprintln(w, mutedStyle.Render("  evidence: "+res.EvidencePath))
	}
}

// printSummary writes the totals of an apply batch.
func printSummary(w io.Writer, attempts []*apply.Attempt) {
	counts := make(map[apply.Outcome]int)
	for _, a := range attempts {
		counts[a.Outcome]++
	}
	fmt.Fprintf(w, "%s %s %s\n",
		successStyle.Render(fmt.Sprintf("%d submitted", counts[apply.OutcomeSubmitted])),
		warnStyle.Render(fmt.Sprintf("%d skipped", counts[apply.OutcomeSkipped])),
		failStyle.Render(fmt.Sprintf("%d aborted", counts[apply.OutcomeAborted])),
	)
}

// renderHistory formats history entries as a table.
func renderHistory(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.AppliedAt.Local().Format("2006-01-02 15:04:05"),
			string(e.Outcome),
			e.JobID,
			strconv.Itoa(e.Steps),
			string(e.Reason),
			e.EvidencePath,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("APPLIED", "OUTCOME", "JOB", "STEPS", "REASON", "EVIDENCE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(entries) {
				return outcomeStyle(entries[row].Outcome).Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}
