package compliance

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/compliance-engine/internal/filestore"
	"github.com/jonathan/compliance-engine/internal/llm"
	"github.com/jonathan/compliance-engine/internal/prompts"
	"github.com/jonathan/compliance-engine/internal/schemas"
	"github.com/jonathan/compliance-engine/internal/types"
)

const promptFile = "compliance.json"

// Generation temperatures. Extraction is a transcription task; verification
// tolerates a little latitude for phrasing the correction suggestions.
const (
	extractTemperature = 0.0
	verifyTemperature  = 0.3
)

// Pipeline sequences the four stages over a State. It holds no per-run
// state itself; one Pipeline serves any number of concurrent runs.
type Pipeline struct {
	client   llm.Client
	invoker  *llm.Invoker
	resolver *filestore.Resolver
	log      *zap.Logger
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(client llm.Client, invoker *llm.Invoker, resolver *filestore.Resolver, log *zap.Logger) *Pipeline {
	return &Pipeline{
		client:   client,
		invoker:  invoker,
		resolver: resolver,
		log:      log.Named("pipeline"),
	}
}

// Run executes all four stages in order. Stages are never short-circuited;
// each one checks its own preconditions and no-ops safely when an earlier
// stage failed. The caller receives the terminal state.
func (p *Pipeline) Run(ctx context.Context, state *State) *State {
	for _, stage := range []struct {
		name string
		fn   func(context.Context, *State)
	}{
		{StageSetup, p.setup},
		{StageExtract, p.extract},
		{StageVerify, p.verify},
		{StageCleanup, p.cleanup},
	} {
		p.log.Info("stage start",
			zap.String("stage", stage.name),
			zap.String("user_id", state.UserID),
			zap.Int("errors", len(state.Errors)))
		stage.fn(ctx, state)
	}
	p.log.Info("pipeline done", zap.String("stage", StageDone), zap.Int("errors", len(state.Errors)))
	return state
}

// setup resolves which rules the run uses and where they live. A missing
// user id or a failed resolution is recorded, not raised; later stages
// detect the absent store handle.
func (p *Pipeline) setup(ctx context.Context, state *State) {
	if state.UserID == "" {
		state.recordError("missing user_id")
		return
	}
	if state.Preuploaded && state.FileID == "" {
		state.recordError("missing file_id")
		return
	}

	var (
		fc  *filestore.Context
		err error
	)
	if state.Preuploaded {
		fc, err = p.resolver.UploadedContext(ctx, state.UserID, state.FileID)
	} else {
		fc, err = p.resolver.PrepareContext(ctx, state.UserID, state.Source, state.FileID)
	}
	if err != nil {
		p.log.Error("context setup failed", zap.String("user_id", state.UserID), zap.Error(err))
		state.recordError(fmt.Sprintf("context setup failed: %v", err))
		return
	}

	state.StoreName = fc.StoreName
	state.MetadataFilter = fc.MetadataFilter
	state.CleanupTarget = fc.CleanupTarget
	state.Mode = fc.Mode
	state.FileID = fc.FileID
}

// extract derives the rule summary from the stored policy document. With no
// store handle it writes the error sentinel instead of calling out.
func (p *Pipeline) extract(ctx context.Context, state *State) {
	if state.StoreName == "" {
		state.ExtractedRules = noStoreSentinel
		return
	}

	prompt := prompts.Format(prompts.MustGet(promptFile, "extract_rules"), map[string]string{
		"Mode": string(state.Mode),
	})
	text, err := p.invoker.Generate(ctx, p.client, &llm.GenerateRequest{
		Prompt:         prompt,
		Temperature:    extractTemperature,
		StoreNames:     []string{state.StoreName},
		MetadataFilter: state.MetadataFilter,
	})
	if err != nil {
		p.log.Error("extraction failed", zap.String("user_id", state.UserID), zap.Error(err))
		state.ExtractedRules = extractFailurePrefix + err.Error()
		state.recordError(fmt.Sprintf("extraction failed: %v", err))
		return
	}
	state.ExtractedRules = text
	p.log.Info("rules extracted",
		zap.String("user_id", state.UserID),
		zap.String("mode", string(state.Mode)),
		zap.Int("length", len(text)))
}

// verify compares the caller's text against the extracted rules, requesting
// output constrained to the report schema. Unusable rules produce the
// skipped-report sentinel instead of a call.
func (p *Pipeline) verify(ctx context.Context, state *State) {
	if state.rulesUnusable() {
		state.Report = skippedReportSentinel
		return
	}

	system := prompts.Format(prompts.MustGet(promptFile, "verify_system"), map[string]string{
		"Mode": string(state.Mode),
	})
	prompt := prompts.Format(prompts.MustGet(promptFile, "verify_user"), map[string]string{
		"Rules":   state.ExtractedRules,
		"Content": state.UserContent,
	})
	text, err := p.invoker.Generate(ctx, p.client, &llm.GenerateRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: verifyTemperature,
		JSONSchema:  json.RawMessage(schemas.ComplianceReportSchema()),
	})
	if err != nil {
		p.log.Error("verification failed", zap.String("user_id", state.UserID), zap.Error(err))
		state.recordError(fmt.Sprintf("verification failed: %v", err))
		return
	}
	state.Report = text
}

// cleanup deletes the remote binary uploaded for this run. Only custom-mode
// runs ever delete; the shared standard rules outlive every pipeline. Failure
// here is logged and never recorded as a run error.
func (p *Pipeline) cleanup(ctx context.Context, state *State) {
	if state.Mode != types.ModeCustom {
		p.log.Info("cleanup skipped", zap.String("mode", string(state.Mode)))
		return
	}
	if state.CleanupTarget == "" {
		return
	}
	if err := p.client.DeleteFile(ctx, state.CleanupTarget); err != nil {
		p.log.Warn("cleanup failed",
			zap.String("target", state.CleanupTarget),
			zap.Error(err))
		return
	}
	p.log.Info("cleaned up uploaded rules", zap.String("target", state.CleanupTarget))
}
