package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/compliance-engine/internal/llm"
	"github.com/jonathan/compliance-engine/internal/types"
)

func newTestResolver(client llm.Client, standardRulesPath string) *Resolver {
	return NewResolver(newTestManager(client), standardRulesPath, zap.NewNop())
}

func seedStandardDoc(client *fakeClient, storeName string) {
	client.documents[storeName] = append(client.documents[storeName], &llm.Document{
		Name: storeName + "/documents/standard",
		CustomMetadata: []llm.Metadatum{
			{Key: TagType, StringValue: TypeStandardAdminRule},
		},
	})
}

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standard.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 standard"), 0o600))
	return path
}

func TestPrepareContext_CustomMode(t *testing.T) {
	client := newFakeClient()
	r := newTestResolver(client, "")

	fc, err := r.PrepareContext(context.Background(), "u1", &ReaderSource{
		Reader:   readerOf("%PDF"),
		FileName: "rules.pdf",
	}, "f1")
	require.NoError(t, err)

	assert.Equal(t, types.ModeCustom, fc.Mode)
	assert.Equal(t, "f1", fc.FileID)
	assert.NotEmpty(t, fc.StoreName)
	assert.NotEmpty(t, fc.CleanupTarget)
	assert.Equal(t, `user_id = "u1" AND file_id = "f1"`, fc.MetadataFilter)

	// The uploaded record carries the full tag set.
	docs, err := client.ListDocuments(context.Background(), fc.StoreName)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	tags := docs[0].Tags()
	assert.Equal(t, "u1", tags[TagUserID])
	assert.Equal(t, "f1", tags[TagFileID])
	assert.Equal(t, TypeCustomUpload, tags[TagType])
	assert.NotEmpty(t, tags[TagUploadTime])
	assert.Equal(t, fc.CleanupTarget, tags[TagBinaryName])
}

func TestPrepareContext_StandardMode(t *testing.T) {
	client := newFakeClient()
	client.stores = []*llm.Store{
		{Name: "fileSearchStores/admin", DisplayName: AdminStoreDisplayName},
	}
	seedStandardDoc(client, "fileSearchStores/admin")
	r := newTestResolver(client, "")

	fc, err := r.PrepareContext(context.Background(), "u1", nil, "")
	require.NoError(t, err)

	assert.Equal(t, types.ModeStandard, fc.Mode)
	assert.Equal(t, "fileSearchStores/admin", fc.StoreName)
	assert.Empty(t, fc.CleanupTarget)
	assert.Equal(t, fmt.Sprintf("%s = %q", TagType, TypeStandardAdminRule), fc.MetadataFilter)
	assert.Empty(t, client.uploadedFiles)
}

func TestPrepareContext_StandardModeSelfHeals(t *testing.T) {
	client := newFakeClient()
	client.stores = []*llm.Store{
		{Name: "fileSearchStores/admin", DisplayName: AdminStoreDisplayName},
	}
	r := newTestResolver(client, writeTempPDF(t))

	fc, err := r.PrepareContext(context.Background(), "u1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, types.ModeStandard, fc.Mode)

	// The empty shared store got seeded before the context was returned.
	docs, err := client.ListDocuments(context.Background(), "fileSearchStores/admin")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, TypeStandardAdminRule, docs[0].Tags()[TagType])
}

func TestPrepareContext_StandardModeNoSeedSource(t *testing.T) {
	client := newFakeClient()
	r := newTestResolver(client, "")

	_, err := r.PrepareContext(context.Background(), "u1", nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no standard rules source")
}

func TestUploadedContext_NoCleanupTarget(t *testing.T) {
	client := newFakeClient()
	r := newTestResolver(client, "")

	fc, err := r.UploadedContext(context.Background(), "u1", "f9")
	require.NoError(t, err)
	assert.Equal(t, types.ModeCustom, fc.Mode)
	assert.Empty(t, fc.CleanupTarget)
	assert.Equal(t, `user_id = "u1" AND file_id = "f9"`, fc.MetadataFilter)
}

func TestUserScopeFilter_EscapesQuotes(t *testing.T) {
	filter := userScopeFilter(`u"1`, "f1")
	assert.Equal(t, `user_id = "u\"1" AND file_id = "f1"`, filter)
}

func TestSeedStandardRules_TagsRecord(t *testing.T) {
	client := newFakeClient()
	r := newTestResolver(client, "")

	err := r.SeedStandardRules(context.Background(), PathSource(writeTempPDF(t)))
	require.NoError(t, err)

	storeName, err := newTestManager(client).ResolveStore(context.Background(), AdminStoreDisplayName)
	require.NoError(t, err)
	docs, err := client.ListDocuments(context.Background(), storeName)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, TypeStandardAdminRule, docs[0].Tags()[TagType])
}

func TestDeleteUserDocument(t *testing.T) {
	client := newFakeClient()
	r := newTestResolver(client, "")

	fc, err := r.PrepareContext(context.Background(), "u1", &ReaderSource{
		Reader:   readerOf("%PDF"),
		FileName: "rules.pdf",
	}, "f1")
	require.NoError(t, err)

	outcome, err := r.DeleteUserDocument(context.Background(), "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "success", outcome.Status)

	docs, err := client.ListDocuments(context.Background(), fc.StoreName)
	require.NoError(t, err)
	assert.Empty(t, docs)

	// A second delete for the same pair is a tolerated not_found.
	outcome, err = r.DeleteUserDocument(context.Background(), "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "not_found", outcome.Status)
}
