package llm

import "encoding/json"

// Wire types for the generation/retrieval REST API. Field names follow the
// service's camelCase JSON convention.

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text string `json:"text,omitempty"`
}

type wireFileSearch struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
	MetadataFilter       string   `json:"metadataFilter,omitempty"`
}

type wireTool struct {
	FileSearch *wireFileSearch `json:"fileSearch,omitempty"`
}

type wireGenerationConfig struct {
	Temperature        *float64        `json:"temperature,omitempty"`
	ResponseMIMEType   string          `json:"responseMimeType,omitempty"`
	ResponseJSONSchema json.RawMessage `json:"responseJsonSchema,omitempty"`
}

type generateContentRequest struct {
	Contents          []wireContent         `json:"contents"`
	SystemInstruction *wireContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *wireGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []wireTool            `json:"tools,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
			Role  string     `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// errorEnvelope is the service's non-2xx response body.
type errorEnvelope struct {
	Error *APIError `json:"error"`
}

type storeResource struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

type listStoresResponse struct {
	FileSearchStores []*storeResource `json:"fileSearchStores"`
	NextPageToken    string           `json:"nextPageToken,omitempty"`
}

type fileResource struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
	State       string `json:"state,omitempty"`
}

// uploadFileResponse wraps the created file resource.
type uploadFileResponse struct {
	File *fileResource `json:"file"`
}

// uploadFileMetadata is the JSON part of the multipart upload body.
type uploadFileMetadata struct {
	File struct {
		DisplayName string `json:"displayName,omitempty"`
	} `json:"file"`
}

type wireMetadatum struct {
	Key          string   `json:"key"`
	StringValue  string   `json:"stringValue,omitempty"`
	NumericValue *float64 `json:"numericValue,omitempty"`
}

type importFileRequest struct {
	FileName       string          `json:"fileName"`
	CustomMetadata []wireMetadatum `json:"customMetadata,omitempty"`
}

type wireOperation struct {
	Name  string    `json:"name"`
	Done  bool      `json:"done"`
	Error *APIError `json:"error,omitempty"`
}

type documentResource struct {
	Name           string          `json:"name"`
	DisplayName    string          `json:"displayName,omitempty"`
	CustomMetadata []wireMetadatum `json:"customMetadata,omitempty"`
}

type listDocumentsResponse struct {
	Documents     []*documentResource `json:"documents"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
}
