package upload

import (
	"fmt"
	"strings"
)

// PartRange is one contiguous byte range [Start, End) of a multipart plan.
type PartRange struct {
	Number int
	Start  int64
	End    int64
}

func (p PartRange) Length() int64 {
	return p.End - p.Start
}

// PlanParts splits [0, size) into contiguous ranges of partSize; the last one may be shorter.
// A zero-byte file yields a single empty part.
func PlanParts(size, partSize int64) ([]PartRange, error) {
	if partSize <= 0 {
		return nil, fmt.Errorf("part size must be positive, got %d", partSize)
	}
	if size < 0 {
		return nil, fmt.Errorf("file size must not be negative, got %d", size)
	}
	if size == 0 {
		return []PartRange{{Number: 1}}, nil
	}

	count := (size + partSize - 1) / partSize
	parts := make([]PartRange, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * partSize
		end := start + partSize
		if end > size {
			end = size
		}
		parts = append(parts, PartRange{Number: int(i) + 1, Start: start, End: end})
	}
	return parts, nil
}

// PartNumbers lists the part numbers of a plan in order.
func PartNumbers(parts []PartRange) []int {
	numbers := make([]int, len(parts))
	for i, p := range parts {
		numbers[i] = p.Number
	}
	return numbers
}

// NormalizeETag strips the quotes storage puts around ETag values.
func NormalizeETag(etag string) string {
	return strings.Trim(strings.TrimSpace(etag), `"`)
}

// Progress is a snapshot of bytes moved for one file.
type Progress struct {
	TotalBytes    int64 `json:"total_bytes"`
	UploadedBytes int64 `json:"uploaded_bytes"`
	Percent       int   `json:"percent"`
}

// NewProgress clamps uploaded into [0, total] and computes the floored percentage.
func NewProgress(uploaded, total int64) Progress {
	if uploaded < 0 {
		uploaded = 0
	}
	if uploaded > total {
		uploaded = total
	}
	percent := 0
	if total > 0 {
		percent = int(uploaded * 100 / total)
	}
	return Progress{TotalBytes: total, UploadedBytes: uploaded, Percent: percent}
}

// Done returns the progress of a finished file.
func Done(total int64) Progress {
	return Progress{TotalBytes: total, UploadedBytes: total, Percent: 100}
}
