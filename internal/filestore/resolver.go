package filestore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/compliance-engine/internal/llm"
	"github.com/jonathan/compliance-engine/internal/types"
)

// Context carries the addressing information the pipeline needs once the rule
// source for a run has been decided.
type Context struct {
	// StoreName is the resolved collection handle.
	StoreName string
	// MetadataFilter scopes store queries to the records relevant to this run.
	MetadataFilter string
	// CleanupTarget is the remote binary to delete at the end of a custom
	// run. Empty for standard runs and for pre-uploaded documents the caller
	// manages explicitly.
	CleanupTarget string
	// Mode records which rule source was chosen.
	Mode types.Mode
	// FileID identifies the caller's document within the user store.
	FileID string
}

// Resolver decides, per request, whether a run uses caller-supplied rules or
// the shared default, and produces the store handle and scope filter for it.
type Resolver struct {
	manager           *Manager
	standardRulesPath string
	log               *zap.Logger
}

// NewResolver creates a Resolver. standardRulesPath may be empty; standard
// mode then fails when the shared store needs seeding.
func NewResolver(manager *Manager, standardRulesPath string, log *zap.Logger) *Resolver {
	return &Resolver{
		manager:           manager,
		standardRulesPath: standardRulesPath,
		log:               log.Named("resolver"),
	}
}

// PrepareContext is the decision engine: a non-nil source selects custom mode
// (upload into the per-user store, scoped to this user and file, cleaned up
// afterwards); a nil source falls back to the shared standard rules.
func (r *Resolver) PrepareContext(ctx context.Context, userID string, src Source, fileID string) (*Context, error) {
	if src != nil {
		r.log.Info("using caller-supplied rules", zap.String("user_id", userID), zap.String("file_id", fileID))
		return r.customContext(ctx, userID, src, fileID)
	}
	r.log.Info("no custom upload, using standard rules", zap.String("user_id", userID))
	return r.standardContext(ctx)
}

// UploadedContext addresses a document the caller uploaded earlier via
// UploadDocument. No cleanup target: pre-uploaded rules are deleted only on
// explicit request.
func (r *Resolver) UploadedContext(ctx context.Context, userID, fileID string) (*Context, error) {
	storeName, err := r.manager.ResolveStore(ctx, UserStoreDisplayName)
	if err != nil {
		return nil, err
	}
	return &Context{
		StoreName:      storeName,
		MetadataFilter: userScopeFilter(userID, fileID),
		Mode:           types.ModeCustom,
		FileID:         fileID,
	}, nil
}

// UploadDocument pre-indexes a caller's rules document in the user store.
// It returns the store handle and the remote binary identifier.
func (r *Resolver) UploadDocument(ctx context.Context, userID string, src Source, fileID string) (storeName, binary string, err error) {
	storeName, err = r.manager.ResolveStore(ctx, UserStoreDisplayName)
	if err != nil {
		return "", "", err
	}
	binary, err = r.manager.Upload(ctx, storeName, src, []llm.Metadatum{
		{Key: TagUserID, StringValue: userID},
		{Key: TagFileID, StringValue: fileID},
		{Key: TagType, StringValue: TypeCustomUpload},
		{Key: TagUploadTime, StringValue: uploadTimestamp()},
	})
	if err != nil {
		return "", "", err
	}
	return storeName, binary, nil
}

func (r *Resolver) customContext(ctx context.Context, userID string, src Source, fileID string) (*Context, error) {
	storeName, binary, err := r.UploadDocument(ctx, userID, src, fileID)
	if err != nil {
		return nil, err
	}
	return &Context{
		StoreName:      storeName,
		MetadataFilter: userScopeFilter(userID, fileID),
		CleanupTarget:  binary,
		Mode:           types.ModeCustom,
		FileID:         fileID,
	}, nil
}

func (r *Resolver) standardContext(ctx context.Context) (*Context, error) {
	storeName, err := r.manager.ResolveStore(ctx, AdminStoreDisplayName)
	if err != nil {
		return nil, err
	}
	if err := r.ensureStandardRules(ctx, storeName); err != nil {
		return nil, err
	}
	return &Context{
		StoreName:      storeName,
		MetadataFilter: standardScopeFilter(),
		Mode:           types.ModeStandard,
	}, nil
}

// ensureStandardRules self-heals the shared store: if no standard record is
// indexed, seed one from the configured default source.
func (r *Resolver) ensureStandardRules(ctx context.Context, storeName string) error {
	docs, err := r.manager.ListRecords(ctx, storeName)
	if err != nil {
		return fmt.Errorf("failed to inspect standard store: %w", err)
	}
	for _, doc := range docs {
		if doc.Tags()[TagType] == TypeStandardAdminRule {
			return nil
		}
	}

	if r.standardRulesPath == "" {
		return fmt.Errorf("standard store is empty and no standard rules source is configured")
	}
	r.log.Info("seeding standard rules", zap.String("path", r.standardRulesPath))
	return r.SeedStandardRules(ctx, PathSource(r.standardRulesPath))
}

// SeedStandardRules uploads a default policy document into the shared store,
// tagged so the pipeline never deletes it.
func (r *Resolver) SeedStandardRules(ctx context.Context, src Source) error {
	storeName, err := r.manager.ResolveStore(ctx, AdminStoreDisplayName)
	if err != nil {
		return err
	}
	if _, err := r.manager.Upload(ctx, storeName, src, []llm.Metadatum{
		{Key: TagType, StringValue: TypeStandardAdminRule},
		{Key: TagUploadTime, StringValue: uploadTimestamp()},
	}); err != nil {
		return fmt.Errorf("failed to seed standard rules: %w", err)
	}
	return nil
}

// DeleteUserDocument removes a caller's uploaded rules by tag match.
func (r *Resolver) DeleteUserDocument(ctx context.Context, userID, fileID string) (*DeleteOutcome, error) {
	storeName, err := r.manager.ResolveStore(ctx, UserStoreDisplayName)
	if err != nil {
		return nil, err
	}
	return r.manager.DeleteByTags(ctx, storeName, func(tags map[string]string) bool {
		return tags[TagUserID] == userID && tags[TagFileID] == fileID
	})
}

// userScopeFilter matches exactly one caller's document; %q escaping keeps
// embedded quotes in ids from widening the filter.
func userScopeFilter(userID, fileID string) string {
	return fmt.Sprintf("%s = %q AND %s = %q", TagUserID, userID, TagFileID, fileID)
}

func standardScopeFilter() string {
	return fmt.Sprintf("%s = %q", TagType, TypeStandardAdminRule)
}
