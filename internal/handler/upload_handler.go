package handler

import (
	"net/http"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/transport/httpdto"
	"guest-snapper/internal/uploader"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	issuer uploader.URLIssuer
	closer uploader.SessionCloser
}

func NewUploadHandler(issuer uploader.URLIssuer, closer uploader.SessionCloser) *UploadHandler {
	return &UploadHandler{issuer: issuer, closer: closer}
}

// Presign handles POST /v1/uploads/presign
func (h *UploadHandler) Presign(c *gin.Context) {
	var req upload.FileRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.issuer.IssueSingleURL(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res))
}

// InitiateMultipart handles POST /v1/uploads/multipart
func (h *UploadHandler) InitiateMultipart(c *gin.Context) {
	var req upload.FileRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.issuer.InitiateMultipart(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(res))
}

// PartURLs handles POST /v1/uploads/multipart/parts
func (h *UploadHandler) PartURLs(c *gin.Context) {
	var req upload.PartURLsRequest
	if !bindJSON(c, &req) {
		return
	}
	parts, err := h.issuer.IssuePartURLs(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PartURLsResponse{Parts: parts}))
}

// Complete handles POST /v1/uploads/multipart/complete
func (h *UploadHandler) Complete(c *gin.Context) {
	var req upload.CompleteRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.closer.CompleteMultipart(c.Request.Context(), req); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// Abort handles POST /v1/uploads/multipart/abort
func (h *UploadHandler) Abort(c *gin.Context) {
	var req upload.AbortRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.closer.AbortMultipart(c.Request.Context(), req); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return false
	}
	return true
}
