package compliance

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/compliance-engine/internal/llm"
	"github.com/jonathan/compliance-engine/internal/schemas"
	"github.com/jonathan/compliance-engine/internal/types"
)

// ParseResult turns a terminal pipeline state into the caller-visible
// outcome. Exactly three shapes exist: failed (the pipeline recorded errors),
// error (the verification output does not decode to a valid report), and
// success (a schema-valid report).
func ParseResult(state *State) *types.ComplianceResult {
	if state.failed() {
		return &types.ComplianceResult{
			Status: types.StatusFailed,
			Mode:   state.Mode,
			Errors: append([]string(nil), state.Errors...),
		}
	}

	raw := llm.CleanJSONBlock(state.Report)
	if err := schemas.ValidateReport(raw); err != nil {
		return &types.ComplianceResult{
			Status:    types.StatusError,
			Mode:      state.Mode,
			Message:   fmt.Sprintf("verification output is not a valid report: %v", err),
			RawOutput: raw,
		}
	}

	var report types.ComplianceReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return &types.ComplianceResult{
			Status:    types.StatusError,
			Mode:      state.Mode,
			Message:   fmt.Sprintf("failed to decode report: %v", err),
			RawOutput: raw,
		}
	}

	return &types.ComplianceResult{
		Status: types.StatusSuccess,
		Mode:   state.Mode,
		Report: &report,
	}
}
