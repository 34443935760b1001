// Package types provides type definitions for structured data used throughout the compliance engine.
package types

// Violation represents a single rule violation found during verification.
type Violation struct {
	RuleCategory         string `json:"rule_category"`
	ViolationText        string `json:"violation_text"`
	CorrectionSuggestion string `json:"correction_suggestion"`
	Severity             string `json:"severity"` // conventionally high|medium|low
}

// ComplianceReport is the structured outcome of a verification call.
// Field names match the JSON the verification stage requests from the model.
type ComplianceReport struct {
	IsCompliant         bool        `json:"is_compliant"`
	OverallScore        float64     `json:"overallScore"`
	DetectionConfidence string      `json:"detectionConfidence"` // LOW|MEDIUM|HIGH
	TotalViolations     int         `json:"totalViolations"`
	Violations          []Violation `json:"violations"`
}

// ResultStatus classifies the outcome of a pipeline run.
type ResultStatus string

const (
	// StatusSuccess means the run produced a valid ComplianceReport.
	StatusSuccess ResultStatus = "success"
	// StatusFailed means the pipeline itself recorded one or more errors.
	StatusFailed ResultStatus = "failed"
	// StatusError means the verification output could not be decoded as a report.
	StatusError ResultStatus = "error"
)

// Mode identifies which rule source a run used.
type Mode string

const (
	// ModeCustom means the caller supplied their own rules document.
	ModeCustom Mode = "custom"
	// ModeStandard means the run fell back to the shared admin rules.
	ModeStandard Mode = "standard"
)

// ComplianceResult is the caller-visible outcome of a compliance check.
// Exactly one of Report, Errors, or RawOutput carries the payload, keyed by Status.
type ComplianceResult struct {
	Status    ResultStatus      `json:"status"`
	Mode      Mode              `json:"mode,omitempty"`
	Report    *ComplianceReport `json:"report,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
	Message   string            `json:"message,omitempty"`
	RawOutput string            `json:"raw_output,omitempty"`
}
