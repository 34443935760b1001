package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/compliance-engine/internal/llm"
)

// fakeClient is an in-memory llm.Client for filestore tests. All mutating
// calls are recorded; behavior is scripted per test through the override
// funcs and the seeded state.
type fakeClient struct {
	mu sync.Mutex

	stores    []*llm.Store
	documents map[string][]*llm.Document // store name -> docs

	// fileStates scripts successive GetFile responses per file name.
	fileStates map[string][]string

	createdStores    []string
	uploadedFiles    []string
	importedFiles    []string
	deletedFiles     []string
	deletedDocuments []string

	listStoresErr error
	uploadErr     error

	generate func(ctx context.Context, req *llm.GenerateRequest) (string, error)
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		documents:  make(map[string][]*llm.Document),
		fileStates: make(map[string][]string),
	}
}

func (f *fakeClient) GenerateContent(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	if f.generate != nil {
		return f.generate(ctx, req)
	}
	return "", errors.New("generate not scripted")
}

func (f *fakeClient) CreateStore(_ context.Context, displayName string) (*llm.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	store := &llm.Store{
		Name:        fmt.Sprintf("fileSearchStores/created-%d", len(f.createdStores)),
		DisplayName: displayName,
	}
	f.stores = append(f.stores, store)
	f.createdStores = append(f.createdStores, displayName)
	return store, nil
}

func (f *fakeClient) ListStores(context.Context) ([]*llm.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listStoresErr != nil {
		return nil, f.listStoresErr
	}
	return append([]*llm.Store(nil), f.stores...), nil
}

func (f *fakeClient) DeleteStore(context.Context, string, bool) error { return nil }

func (f *fakeClient) UploadFile(_ context.Context, r io.Reader, displayName, _ string) (*llm.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("files/upload-%d", len(f.uploadedFiles))
	f.uploadedFiles = append(f.uploadedFiles, name)
	state := llm.FileStateActive
	if states, ok := f.fileStates[displayName]; ok && len(states) > 0 {
		state = states[0]
		f.fileStates[name] = states[1:]
	}
	return &llm.File{Name: name, DisplayName: displayName, State: state}, nil
}

func (f *fakeClient) GetFile(_ context.Context, name string) (*llm.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	states := f.fileStates[name]
	if len(states) == 0 {
		return &llm.File{Name: name, State: llm.FileStateActive}, nil
	}
	state := states[0]
	f.fileStates[name] = states[1:]
	return &llm.File{Name: name, State: state}, nil
}

func (f *fakeClient) DeleteFile(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFiles = append(f.deletedFiles, name)
	return nil
}

func (f *fakeClient) ImportFile(_ context.Context, storeName, fileName string, metadata []llm.Metadatum) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.importedFiles = append(f.importedFiles, fileName)
	doc := &llm.Document{
		Name:        storeName + "/documents/" + fileName,
		DisplayName: fileName,
	}
	doc.CustomMetadata = append(doc.CustomMetadata, metadata...)
	f.documents[storeName] = append(f.documents[storeName], doc)
	return nil
}

func (f *fakeClient) ListDocuments(_ context.Context, storeName string) ([]*llm.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*llm.Document(nil), f.documents[storeName]...), nil
}

func (f *fakeClient) DeleteDocument(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedDocuments = append(f.deletedDocuments, name)
	for store, docs := range f.documents {
		for i, doc := range docs {
			if doc.Name == name {
				f.documents[store] = append(docs[:i], docs[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func readerOf(s string) io.Reader {
	return strings.NewReader(s)
}

func newTestManager(client llm.Client) *Manager {
	m := NewManager(client, zap.NewNop())
	m.SetPollBounds(time.Millisecond, 5)
	return m
}

func TestResolveStore_UsesExistingStore(t *testing.T) {
	client := newFakeClient()
	client.stores = []*llm.Store{
		{Name: "fileSearchStores/existing", DisplayName: UserStoreDisplayName},
	}
	m := newTestManager(client)

	name, err := m.ResolveStore(context.Background(), UserStoreDisplayName)
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/existing", name)
	assert.Empty(t, client.createdStores)
}

func TestResolveStore_CreatesWhenMissing(t *testing.T) {
	client := newFakeClient()
	m := newTestManager(client)

	name, err := m.ResolveStore(context.Background(), AdminStoreDisplayName)
	require.NoError(t, err)
	assert.NotEmpty(t, name)
	assert.Equal(t, []string{AdminStoreDisplayName}, client.createdStores)
}

func TestResolveStore_Idempotent(t *testing.T) {
	client := newFakeClient()
	m := newTestManager(client)

	first, err := m.ResolveStore(context.Background(), UserStoreDisplayName)
	require.NoError(t, err)
	second, err := m.ResolveStore(context.Background(), UserStoreDisplayName)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, client.createdStores, 1)
}

func TestResolveStore_ConcurrentCallersShareHandle(t *testing.T) {
	client := newFakeClient()
	client.stores = []*llm.Store{
		{Name: "fileSearchStores/shared", DisplayName: UserStoreDisplayName},
	}
	m := newTestManager(client)

	names := make([]string, 8)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range names {
		g.Go(func() error {
			name, err := m.ResolveStore(ctx, UserStoreDisplayName)
			names[i] = name
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, name := range names {
		assert.Equal(t, "fileSearchStores/shared", name)
	}
	assert.Empty(t, client.createdStores)
}

func TestResolveStore_ListFailureFallsBackToCreate(t *testing.T) {
	client := newFakeClient()
	client.listStoresErr = errors.New("network down")
	m := newTestManager(client)

	name, err := m.ResolveStore(context.Background(), UserStoreDisplayName)
	require.NoError(t, err)
	assert.NotEmpty(t, name)
	assert.Len(t, client.createdStores, 1)
}

func TestUpload_PollsUntilActiveAndImports(t *testing.T) {
	client := newFakeClient()
	client.fileStates["rules.pdf"] = []string{
		llm.FileStateProcessing,
		llm.FileStateProcessing,
		llm.FileStateActive,
	}
	m := newTestManager(client)

	binary, err := m.Upload(context.Background(), "fileSearchStores/s", &ReaderSource{
		Reader:   readerOf("%PDF"),
		FileName: "rules.pdf",
	}, []llm.Metadatum{{Key: TagUserID, StringValue: "u1"}})
	require.NoError(t, err)
	require.Len(t, client.importedFiles, 1)
	assert.Equal(t, client.importedFiles[0], binary)

	// The registered record carries the binary's own identifier.
	docs, err := m.ListRecords(context.Background(), "fileSearchStores/s")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, binary, docs[0].Tags()[TagBinaryName])
	assert.Equal(t, "u1", docs[0].Tags()[TagUserID])
}

func TestUpload_FailedProcessingIsHardError(t *testing.T) {
	client := newFakeClient()
	client.fileStates["rules.pdf"] = []string{
		llm.FileStateProcessing,
		llm.FileStateFailed,
	}
	m := newTestManager(client)

	_, err := m.Upload(context.Background(), "fileSearchStores/s", &ReaderSource{
		Reader:   readerOf("%PDF"),
		FileName: "rules.pdf",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing failed")
	assert.Empty(t, client.importedFiles)
}

func TestUpload_PollBudgetExceeded(t *testing.T) {
	client := newFakeClient()
	client.fileStates["rules.pdf"] = []string{
		llm.FileStateProcessing, llm.FileStateProcessing, llm.FileStateProcessing,
		llm.FileStateProcessing, llm.FileStateProcessing, llm.FileStateProcessing,
		llm.FileStateProcessing, llm.FileStateProcessing,
	}
	m := newTestManager(client)
	m.SetPollBounds(time.Millisecond, 3)

	_, err := m.Upload(context.Background(), "fileSearchStores/s", &ReaderSource{
		Reader:   readerOf("%PDF"),
		FileName: "rules.pdf",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still processing")
}

func TestUpload_MissingSource(t *testing.T) {
	client := newFakeClient()
	m := newTestManager(client)

	_, err := m.Upload(context.Background(), "fileSearchStores/s", PathSource("/does/not/exist.pdf"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestDeleteByTags_DeletesBinaryThenRecord(t *testing.T) {
	client := newFakeClient()
	client.documents["fileSearchStores/s"] = []*llm.Document{
		{
			Name: "fileSearchStores/s/documents/d1",
			CustomMetadata: []llm.Metadatum{
				{Key: TagUserID, StringValue: "u1"},
				{Key: TagFileID, StringValue: "f1"},
				{Key: TagBinaryName, StringValue: "files/bin1"},
			},
		},
		{
			Name: "fileSearchStores/s/documents/d2",
			CustomMetadata: []llm.Metadatum{
				{Key: TagUserID, StringValue: "u2"},
				{Key: TagFileID, StringValue: "f1"},
			},
		},
	}
	m := newTestManager(client)

	outcome, err := m.DeleteByTags(context.Background(), "fileSearchStores/s", func(tags map[string]string) bool {
		return tags[TagUserID] == "u1" && tags[TagFileID] == "f1"
	})
	require.NoError(t, err)
	assert.Equal(t, "success", outcome.Status)
	assert.Equal(t, "fileSearchStores/s/documents/d1", outcome.Document)
	assert.Equal(t, "files/bin1", outcome.Binary)
	assert.Equal(t, []string{"files/bin1"}, client.deletedFiles)
	assert.Equal(t, []string{"fileSearchStores/s/documents/d1"}, client.deletedDocuments)

	// The other user's record is untouched.
	docs, err := m.ListRecords(context.Background(), "fileSearchStores/s")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u2", docs[0].Tags()[TagUserID])
}

func TestDeleteByTags_NotFound(t *testing.T) {
	client := newFakeClient()
	m := newTestManager(client)

	outcome, err := m.DeleteByTags(context.Background(), "fileSearchStores/s", func(map[string]string) bool {
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, "not_found", outcome.Status)
	assert.Empty(t, client.deletedFiles)
	assert.Empty(t, client.deletedDocuments)
}
