// Package compliance implements the four-stage check pipeline: context
// resolution, rule extraction, verification, and cleanup, plus the result
// parser and the public engine API in front of it.
package compliance

import (
	"strings"

	"github.com/jonathan/compliance-engine/internal/filestore"
	"github.com/jonathan/compliance-engine/internal/types"
)

// Stage names, in execution order.
const (
	StageSetup   = "SETUP"
	StageExtract = "EXTRACT"
	StageVerify  = "VERIFY"
	StageCleanup = "CLEANUP"
	StageDone    = "DONE"
)

// Sentinel values stages write instead of raising past their boundary.
const (
	// noStoreSentinel marks extraction that never ran because setup produced
	// no store handle.
	noStoreSentinel = "ERROR: No store configured."
	// extractFailurePrefix marks extraction output replaced by its own error.
	extractFailurePrefix = "Error: "
	// skippedReportSentinel is written by verification when the rules are
	// unusable. It is valid JSON but never satisfies the report schema, so it
	// can never be mistaken for a successful report downstream.
	skippedReportSentinel = `{"error": "SKIPPED: Rules could not be extracted."}`
)

// State is the mutable record threaded through all four stages. One State is
// created per invocation and discarded once the result is parsed.
type State struct {
	UserID      string
	UserContent string

	// Source is the caller-supplied rules document, nil in standard mode and
	// for pre-uploaded rules.
	Source filestore.Source
	// FileID identifies the rules document within the user store.
	FileID string
	// Preuploaded selects a document indexed earlier instead of uploading
	// Source during setup.
	Preuploaded bool

	// Fields below are populated by the stages.
	StoreName      string
	MetadataFilter string
	CleanupTarget  string
	Mode           types.Mode

	ExtractedRules string
	Report         string

	// Errors is append-only. A non-empty list marks the run failed, but
	// later stages still execute and guard their own preconditions.
	Errors []string
}

func (s *State) recordError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func (s *State) failed() bool {
	return len(s.Errors) > 0
}

// rulesUnusable reports whether the extracted rules cannot drive
// verification: empty, the no-store sentinel, or an extraction failure.
func (s *State) rulesUnusable() bool {
	rules := strings.TrimSpace(s.ExtractedRules)
	return rules == "" ||
		strings.Contains(rules, "ERROR") ||
		strings.HasPrefix(rules, extractFailurePrefix)
}
