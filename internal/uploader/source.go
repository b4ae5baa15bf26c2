package uploader

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"guest-snapper/internal/domain/upload"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// OpenFile opens a local file for upload and sniffs its content type.
// The returned closer releases the file once the upload has settled.
func OpenFile(path string) (upload.File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return upload.File{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return upload.File{}, nil, err
	}
	if info.IsDir() {
		f.Close()
		return upload.File{}, nil, fmt.Errorf("%s is a directory", path)
	}

	contentType, err := DetectContentType(io.NewSectionReader(f, 0, info.Size()), filepath.Ext(path))
	if err != nil {
		f.Close()
		return upload.File{}, nil, err
	}

	return upload.File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentType,
		Source:      f,
	}, f, nil
}

// DetectContentType sniffs r, falling back to the file extension when the
// content is not recognised.
func DetectContentType(r io.Reader, ext string) (string, error) {
	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}

	contentType, _, _ := strings.Cut(detected.String(), ";")
	if contentType != defaultContentType {
		return contentType, nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(ext)); byExt != "" {
		contentType, _, _ = strings.Cut(byExt, ";")
	}
	return contentType, nil
}
