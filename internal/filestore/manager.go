package filestore

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/compliance-engine/internal/llm"
)

// Display names of the two logical collections.
const (
	// UserStoreDisplayName holds transient caller uploads.
	UserStoreDisplayName = "Compliance_User_Uploads_v1"
	// AdminStoreDisplayName holds the persistent shared default rules.
	AdminStoreDisplayName = "Compliance_Admin_Standards_v1"
)

// Metadata tag keys attached to indexed documents.
const (
	TagUserID     = "user_id"
	TagFileID     = "file_id"
	TagType       = "type"
	TagUploadTime = "upload_time"
	// TagBinaryName records the remote binary's own identifier so cleanup
	// needs no second lookup.
	TagBinaryName = "google_file_name"
)

// Values of the TagType tag.
const (
	TypeCustomUpload      = "custom_upload"
	TypeStandardAdminRule = "standard_admin_rule"
)

// DeleteOutcome reports what DeleteByTags did.
type DeleteOutcome struct {
	// Status is "success" or "not_found".
	Status string
	// Document is the deleted record's identifier, when one matched.
	Document string
	// Binary is the deleted binary's identifier, when the record carried one.
	Binary string
}

// Manager owns the process's view of the remote document collections. The
// remote service is the source of truth; the local name→handle cache only
// avoids repeat lookups, so a stale entry is a performance concern, not a
// correctness one.
type Manager struct {
	client llm.Client
	log    *zap.Logger

	pollInterval time.Duration
	maxPolls     int

	mu     sync.Mutex
	stores map[string]string // display name → resource name
}

// NewManager creates a Manager with production polling bounds.
func NewManager(client llm.Client, log *zap.Logger) *Manager {
	return &Manager{
		client:       client,
		log:          log.Named("filestore"),
		pollInterval: 2 * time.Second,
		maxPolls:     60,
		stores:       make(map[string]string),
	}
}

// SetPollBounds overrides the indexing poll interval and budget. Used by tests.
func (m *Manager) SetPollBounds(interval time.Duration, maxPolls int) {
	m.pollInterval = interval
	m.maxPolls = maxPolls
}

// ResolveStore returns the resource name of the collection with the given
// display name, creating it only if no existing collection matches. The
// cache-then-list-then-create order keeps concurrent first-time callers from
// piling up duplicate stores; a duplicate created by a genuine race is
// tolerated, since either copy addresses the same logical collection.
func (m *Manager) ResolveStore(ctx context.Context, displayName string) (string, error) {
	m.mu.Lock()
	if name, ok := m.stores[displayName]; ok {
		m.mu.Unlock()
		return name, nil
	}
	m.mu.Unlock()

	stores, err := m.client.ListStores(ctx)
	if err != nil {
		m.log.Warn("failed to list stores", zap.Error(err))
	} else {
		for _, s := range stores {
			if s.DisplayName == displayName {
				m.cacheStore(displayName, s.Name)
				m.log.Info("using existing store", zap.String("store", s.Name), zap.String("display_name", displayName))
				return s.Name, nil
			}
		}
	}

	store, err := m.client.CreateStore(ctx, displayName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve store %q: %w", displayName, err)
	}
	m.cacheStore(displayName, store.Name)
	return store.Name, nil
}

func (m *Manager) cacheStore(displayName, name string) {
	m.mu.Lock()
	m.stores[displayName] = name
	m.mu.Unlock()
}

// Upload transfers the source binary into the service, waits for remote
// processing to finish, and registers it in the collection with the given
// tags plus the binary's own identifier. It returns that identifier.
func (m *Manager) Upload(ctx context.Context, storeName string, src Source, metadata []llm.Metadatum) (string, error) {
	r, err := src.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	file, err := m.client.UploadFile(ctx, r, src.Name(), mimeTypeFor(src.Name()))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", src.Name(), err)
	}

	if err := m.awaitProcessing(ctx, file); err != nil {
		return "", err
	}

	metadata = append(metadata, llm.Metadatum{Key: TagBinaryName, StringValue: file.Name})
	if err := m.client.ImportFile(ctx, storeName, file.Name, metadata); err != nil {
		return "", fmt.Errorf("failed to register %s in store: %w", file.Name, err)
	}
	return file.Name, nil
}

// awaitProcessing polls the file until the service reports a settled state.
// A FAILED state is a hard error; exceeding the poll budget is too.
func (m *Manager) awaitProcessing(ctx context.Context, file *llm.File) error {
	state := file.State
	for poll := 0; state == llm.FileStateProcessing || state == ""; poll++ {
		if poll >= m.maxPolls {
			return fmt.Errorf("file %s still processing after %d polls", file.Name, m.maxPolls)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
		current, err := m.client.GetFile(ctx, file.Name)
		if err != nil {
			return fmt.Errorf("failed to poll file %s: %w", file.Name, err)
		}
		state = current.State
	}
	if state == llm.FileStateFailed {
		return fmt.Errorf("remote processing failed for file %s", file.Name)
	}
	return nil
}

// ListRecords returns every indexed document in the collection. Tag lookups
// are linear scans over this listing; the store has no per-key index.
func (m *Manager) ListRecords(ctx context.Context, storeName string) ([]*llm.Document, error) {
	return m.client.ListDocuments(ctx, storeName)
}

// DeleteByTags scans the collection and deletes the first record whose tags
// satisfy match: the underlying binary when the record names one, then the
// record itself. Callers are responsible for never matching standard admin
// records.
func (m *Manager) DeleteByTags(ctx context.Context, storeName string, match func(tags map[string]string) bool) (*DeleteOutcome, error) {
	docs, err := m.ListRecords(ctx, storeName)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		tags := doc.Tags()
		if !match(tags) {
			continue
		}
		outcome := &DeleteOutcome{Status: "success", Document: doc.Name}
		if binary := tags[TagBinaryName]; binary != "" {
			if err := m.client.DeleteFile(ctx, binary); err != nil {
				// Already-deleted binaries are routine when two runs race on
				// cleanup; the record removal below is what matters.
				m.log.Warn("failed to delete binary", zap.String("binary", binary), zap.Error(err))
			} else {
				outcome.Binary = binary
			}
		}
		if err := m.client.DeleteDocument(ctx, doc.Name); err != nil {
			return nil, fmt.Errorf("failed to delete record %s: %w", doc.Name, err)
		}
		m.log.Info("deleted record", zap.String("document", doc.Name), zap.String("binary", outcome.Binary))
		return outcome, nil
	}
	return &DeleteOutcome{Status: "not_found"}, nil
}

// uploadTimestamp returns the current time as a string tag value.
func uploadTimestamp() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}
