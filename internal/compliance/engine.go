package compliance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/compliance-engine/internal/filestore"
	"github.com/jonathan/compliance-engine/internal/llm"
	"github.com/jonathan/compliance-engine/internal/types"
)

// UploadResult reports a completed rules upload.
type UploadResult struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	FileID string `json:"file_id"`
}

// DeleteResult reports an explicit rules deletion.
type DeleteResult struct {
	Status string `json:"status"`
}

// Engine is the public API over the pipeline. One Engine serves any number
// of concurrent callers.
type Engine struct {
	resolver *filestore.Resolver
	pipeline *Pipeline
	log      *zap.Logger
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(client llm.Client, invoker *llm.Invoker, resolver *filestore.Resolver, log *zap.Logger) *Engine {
	return &Engine{
		resolver: resolver,
		pipeline: NewPipeline(client, invoker, resolver, log),
		log:      log.Named("engine"),
	}
}

// UploadRules pre-indexes a caller's rules document so later checks can
// reference it by file id. An empty fileID gets a generated one.
func (e *Engine) UploadRules(ctx context.Context, src filestore.Source, userID, fileID string) (*UploadResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if src == nil {
		return nil, fmt.Errorf("rules document is required")
	}
	if fileID == "" {
		fileID = uuid.NewString()
	}
	storeName, _, err := e.resolver.UploadDocument(ctx, userID, src, fileID)
	if err != nil {
		return nil, err
	}
	e.log.Info("rules uploaded", zap.String("user_id", userID), zap.String("file_id", fileID))
	return &UploadResult{Status: "success", Store: storeName, FileID: fileID}, nil
}

// CheckCompliance runs one full check. A non-nil src selects custom mode:
// the document is uploaded for this run and deleted afterwards. A nil src
// falls back to the shared standard rules.
func (e *Engine) CheckCompliance(ctx context.Context, userID string, src filestore.Source, userContent string) *types.ComplianceResult {
	state := &State{
		UserID:      userID,
		UserContent: userContent,
		Source:      src,
	}
	if src != nil {
		state.FileID = uuid.NewString()
	}
	return ParseResult(e.pipeline.Run(ctx, state))
}

// CheckComplianceWithUploadedRules runs one check against rules the caller
// indexed earlier via UploadRules. The document is left in place.
func (e *Engine) CheckComplianceWithUploadedRules(ctx context.Context, userID, fileID, userContent string) *types.ComplianceResult {
	state := &State{
		UserID:      userID,
		UserContent: userContent,
		FileID:      fileID,
		Preuploaded: true,
	}
	return ParseResult(e.pipeline.Run(ctx, state))
}

// DeleteRules removes a caller's pre-uploaded rules document. A missing
// record is reported as not_found, not as an error.
func (e *Engine) DeleteRules(ctx context.Context, userID, fileID string) (*DeleteResult, error) {
	if userID == "" || fileID == "" {
		return nil, fmt.Errorf("user_id and file_id are required")
	}
	outcome, err := e.resolver.DeleteUserDocument(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{Status: outcome.Status}, nil
}
