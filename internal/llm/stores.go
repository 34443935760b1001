package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"go.uber.org/zap"
)

// Store, file, and document CRUD against the remote service. The compliance
// pipeline never calls these directly; the filestore manager does.

// CreateStore creates a new document collection with the given display name.
func (c *GeminiClient) CreateStore(ctx context.Context, displayName string) (*Store, error) {
	var resp storeResource
	path := fmt.Sprintf("/%s/fileSearchStores", apiVersion)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &storeResource{DisplayName: displayName}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create store %q: %w", displayName, err)
	}
	c.log.Info("created store", zap.String("store", resp.Name), zap.String("display_name", displayName))
	return &Store{Name: resp.Name, DisplayName: resp.DisplayName}, nil
}

// ListStores returns every document collection, following pagination.
func (c *GeminiClient) ListStores(ctx context.Context) ([]*Store, error) {
	var stores []*Store
	pageToken := ""
	path := fmt.Sprintf("/%s/fileSearchStores", apiVersion)
	for {
		query := url.Values{}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}
		var resp listStoresResponse
		if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list stores: %w", err)
		}
		for _, s := range resp.FileSearchStores {
			stores = append(stores, &Store{Name: s.Name, DisplayName: s.DisplayName})
		}
		if resp.NextPageToken == "" {
			return stores, nil
		}
		pageToken = resp.NextPageToken
	}
}

// DeleteStore removes a collection. With force set, indexed documents are
// removed along with it.
func (c *GeminiClient) DeleteStore(ctx context.Context, name string, force bool) error {
	query := url.Values{}
	if force {
		query.Set("force", "true")
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/"+apiVersion+"/"+name, query, nil, nil); err != nil {
		return fmt.Errorf("failed to delete store %q: %w", name, err)
	}
	return nil
}

// UploadFile transfers a binary to the service's file storage. The returned
// file usually starts in the PROCESSING state; callers poll GetFile until it
// settles.
func (c *GeminiClient) UploadFile(ctx context.Context, r io.Reader, displayName, mimeType string) (*File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload metadata: %w", err)
	}
	var meta uploadFileMetadata
	meta.File.DisplayName = displayName
	if err := json.NewEncoder(metaPart).Encode(&meta); err != nil {
		return nil, fmt.Errorf("failed to build upload metadata: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	if _, err := io.Copy(mediaPart, r); err != nil {
		return nil, fmt.Errorf("failed to read upload source: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload body: %w", err)
	}

	u := fmt.Sprintf("%s/upload/%s/files?uploadType=multipart", c.baseURL, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(data))
	}

	var out uploadFileResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if out.File == nil {
		return nil, fmt.Errorf("upload response missing file resource")
	}
	c.log.Info("uploaded file",
		zap.String("file", out.File.Name),
		zap.String("display_name", displayName),
		zap.String("state", out.File.State))
	return fileFromResource(out.File), nil
}

// GetFile fetches the current state of an uploaded binary.
func (c *GeminiClient) GetFile(ctx context.Context, name string) (*File, error) {
	var resp fileResource
	if err := c.doJSON(ctx, http.MethodGet, "/"+apiVersion+"/"+name, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get file %q: %w", name, err)
	}
	return fileFromResource(&resp), nil
}

// DeleteFile removes an uploaded binary.
func (c *GeminiClient) DeleteFile(ctx context.Context, name string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/"+apiVersion+"/"+name, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete file %q: %w", name, err)
	}
	return nil
}

// ImportFile registers an uploaded binary in a collection together with its
// metadata tags.
func (c *GeminiClient) ImportFile(ctx context.Context, storeName, fileName string, metadata []Metadatum) error {
	body := &importFileRequest{FileName: fileName}
	for _, m := range metadata {
		body.CustomMetadata = append(body.CustomMetadata, wireMetadatum{
			Key:          m.Key,
			StringValue:  m.StringValue,
			NumericValue: m.NumericValue,
		})
	}
	var op wireOperation
	path := "/" + apiVersion + "/" + storeName + ":importFile"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, body, &op); err != nil {
		return fmt.Errorf("failed to import file %q into %q: %w", fileName, storeName, err)
	}
	if op.Error != nil {
		return fmt.Errorf("import of %q failed: %w", fileName, op.Error)
	}
	c.log.Info("imported file", zap.String("file", fileName), zap.String("store", storeName))
	return nil
}

// ListDocuments returns every indexed entry in a collection, following
// pagination. The service has no per-tag index, so tag lookups are linear
// scans over this listing.
func (c *GeminiClient) ListDocuments(ctx context.Context, storeName string) ([]*Document, error) {
	var docs []*Document
	pageToken := ""
	path := "/" + apiVersion + "/" + storeName + "/documents"
	for {
		query := url.Values{}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}
		var resp listDocumentsResponse
		if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list documents in %q: %w", storeName, err)
		}
		for _, d := range resp.Documents {
			doc := &Document{Name: d.Name, DisplayName: d.DisplayName}
			for _, m := range d.CustomMetadata {
				doc.CustomMetadata = append(doc.CustomMetadata, Metadatum{
					Key:          m.Key,
					StringValue:  m.StringValue,
					NumericValue: m.NumericValue,
				})
			}
			docs = append(docs, doc)
		}
		if resp.NextPageToken == "" {
			return docs, nil
		}
		pageToken = resp.NextPageToken
	}
}

// DeleteDocument removes an indexed entry from its collection.
func (c *GeminiClient) DeleteDocument(ctx context.Context, name string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/"+apiVersion+"/"+name, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", name, err)
	}
	return nil
}

func fileFromResource(r *fileResource) *File {
	return &File{
		Name:        r.Name,
		DisplayName: r.DisplayName,
		MIMEType:    r.MIMEType,
		State:       r.State,
	}
}
