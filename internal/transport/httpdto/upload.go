package httpdto

import "guest-snapper/internal/domain/upload"

// PartURLsResponse is returned by POST /v1/uploads/multipart/parts
type PartURLsResponse struct {
	Parts []upload.PartURL `json:"parts"`
}

// ListMediaRequest holds query parameters for GET /v1/events/:id/media
type ListMediaRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type ListMediaResponse struct {
	Media []upload.Record `json:"media"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}
