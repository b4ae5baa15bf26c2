package upload

// Requests and responses exchanged with the URL-issuing, completion and metadata services.

type FileRequest struct {
	Target      Target `json:"target"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

type SingleURL struct {
	URL            string `json:"url"`
	StorageKey     string `json:"storage_key"`
	DestinationURL string `json:"destination_url"`
}

type MultipartInit struct {
	SessionID      string `json:"session_id"`
	StorageKey     string `json:"storage_key"`
	DestinationURL string `json:"destination_url"`
	PartSize       int64  `json:"part_size"`
}

type PartURLsRequest struct {
	StorageKey  string `json:"storage_key"`
	SessionID   string `json:"session_id"`
	PartNumbers []int  `json:"part_numbers"`
}

type CompleteRequest struct {
	StorageKey string       `json:"storage_key"`
	SessionID  string       `json:"session_id"`
	Parts      []PartResult `json:"parts"`
}

type AbortRequest struct {
	StorageKey string `json:"storage_key"`
	SessionID  string `json:"session_id"`
}

type MetadataRequest struct {
	Target         Target `json:"target"`
	StorageKey     string `json:"storage_key"`
	DestinationURL string `json:"destination_url"`
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size"`
	FileType       string `json:"file_type"`
	MimeType       string `json:"mime_type"`
}
