package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/compliance-engine/internal/types"
)

func TestPrintResult_SuccessReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResult(&types.ComplianceResult{
		Status: types.StatusSuccess,
		Mode:   types.ModeCustom,
		Report: &types.ComplianceReport{
			IsCompliant:         false,
			OverallScore:        40,
			DetectionConfidence: "HIGH",
			TotalViolations:     1,
			Violations: []types.Violation{{
				RuleCategory:         "Data Privacy",
				ViolationText:        "email exposed",
				CorrectionSuggestion: "mask it",
				Severity:             "high",
			}},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Compliance Report")
	assert.Contains(t, out, "NON-COMPLIANT")
	assert.Contains(t, out, "Data Privacy")
	assert.Contains(t, out, "HIGH")
}

func TestPrintResult_Failed(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResult(&types.ComplianceResult{
		Status: types.StatusFailed,
		Mode:   types.ModeStandard,
		Errors: []string{"extraction failed: transient fault"},
	})

	out := buf.String()
	assert.Contains(t, out, "Check Failed")
	assert.Contains(t, out, "extraction failed")
}

func TestPrintResult_MalformedOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResult(&types.ComplianceResult{
		Status:    types.StatusError,
		Message:   "verification output is not a valid report",
		RawOutput: "{not valid json",
	})

	assert.Contains(t, buf.String(), "Malformed Report")
}

func TestPrintResult_NilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResult(nil)
	assert.Empty(t, buf.String())
}
