package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/compliance-engine/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxViolationsToShow bounds how many violations are printed in full
	maxViolationsToShow = 10
)

// Printer handles formatted output for CLI mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResult outputs a human-readable summary of a check outcome.
func (p *Printer) PrintResult(result *types.ComplianceResult) {
	if result == nil {
		return
	}

	switch result.Status {
	case types.StatusFailed:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Mode:   %s\n", result.Mode))
		sb.WriteString("Errors:\n")
		for i, e := range result.Errors {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, e))
		}
		p.printBox("Check Failed", strings.TrimRight(sb.String(), "\n"))
	case types.StatusError:
		var sb strings.Builder
		sb.WriteString(result.Message)
		sb.WriteString("\n\nRaw output:\n")
		sb.WriteString(result.RawOutput)
		p.printBox("Malformed Report", strings.TrimRight(sb.String(), "\n"))
	case types.StatusSuccess:
		p.printReport(result.Mode, result.Report)
	}
}

func (p *Printer) printReport(mode types.Mode, report *types.ComplianceReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	verdict := "NON-COMPLIANT"
	if report.IsCompliant {
		verdict = "COMPLIANT"
	}
	sb.WriteString(fmt.Sprintf("Verdict:     %s\n", verdict))
	sb.WriteString(fmt.Sprintf("Score:       %.1f / 100\n", report.OverallScore))
	sb.WriteString(fmt.Sprintf("Confidence:  %s\n", report.DetectionConfidence))
	sb.WriteString(fmt.Sprintf("Mode:        %s\n", mode))
	sb.WriteString(fmt.Sprintf("Violations:  %d\n", report.TotalViolations))

	count := min(len(report.Violations), maxViolationsToShow)
	for i := 0; i < count; i++ {
		v := report.Violations[i]
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, strings.ToUpper(v.Severity), v.RuleCategory))
		sb.WriteString(fmt.Sprintf("   Found:  %s\n", v.ViolationText))
		sb.WriteString(fmt.Sprintf("   Fix:    %s\n", v.CorrectionSuggestion))
	}
	if len(report.Violations) > maxViolationsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(report.Violations)-maxViolationsToShow))
	}

	p.printBox("Compliance Report", strings.TrimRight(sb.String(), "\n"))
}
