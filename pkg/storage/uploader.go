package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// FileUpload is one in-memory file queued for transfer.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult describes one transferred object.
type UploadResult struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType"`
}

// ProgressFunc receives aggregate transfer progress across the whole batch.
// transferred is monotonically non-decreasing and reaches total on success.
type ProgressFunc func(transferred, total int64)

// Uploader transfers a batch of files and returns durable URLs in input order.
type Uploader interface {
	UploadAll(ctx context.Context, listingID string, files []FileUpload, progress ProgressFunc) ([]UploadResult, error)
}

// BatchUploader uploads files concurrently to an ObjectStore under
// listings/{listingID}/{token}-{name}. The first transfer failure cancels the
// remaining transfers; objects already transferred are left in place for the
// cleanup job to collect.
type BatchUploader struct {
	objects     ObjectStore
	prefix      string
	concurrency int
	perFile     time.Duration
}

// BatchUploaderOption customizes a BatchUploader.
type BatchUploaderOption func(*BatchUploader)

// WithConcurrency caps simultaneous transfers.
func WithConcurrency(n int) BatchUploaderOption {
	return func(u *BatchUploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithPerFileTimeout bounds each individual transfer.
func WithPerFileTimeout(d time.Duration) BatchUploaderOption {
	return func(u *BatchUploader) {
		if d > 0 {
			u.perFile = d
		}
	}
}

// NewBatchUploader builds an uploader writing under the "listings" prefix.
func NewBatchUploader(objects ObjectStore, opts ...BatchUploaderOption) *BatchUploader {
	u := &BatchUploader{
		objects:     objects,
		prefix:      "listings",
		concurrency: 4,
		perFile:     2 * time.Minute,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// UploadAll transfers every file and returns results in input order, no matter
// which transfer finishes first. Zero-byte files are skipped silently.
func (u *BatchUploader) UploadAll(ctx context.Context, listingID string, files []FileUpload, progress ProgressFunc) ([]UploadResult, error) {
	if strings.TrimSpace(listingID) == "" {
		return nil, fmt.Errorf("listing id required")
	}

	queue := make([]FileUpload, 0, len(files))
	var total int64
	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		queue = append(queue, f)
		total += int64(len(f.Data))
	}
	if len(queue) == 0 {
		return nil, fmt.Errorf("no non-empty files to upload")
	}

	var transferred atomic.Int64
	report := func(n int64) {
		if progress == nil {
			return
		}
		progress(transferred.Add(n), total)
	}

	results := make([]UploadResult, len(queue))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i, f := range queue {
		g.Go(func() error {
			key := u.objectKey(listingID, f.Name)
			contentType := f.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			fctx, cancel := context.WithTimeout(gctx, u.perFile)
			defer cancel()
			r := &countingReader{r: bytes.NewReader(f.Data), report: report}
			if err := u.objects.Put(fctx, key, r, int64(len(f.Data)), contentType); err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			results[i] = UploadResult{
				URL:         u.objects.PublicURL(key),
				Path:        key,
				SizeBytes:   int64(len(f.Data)),
				ContentType: contentType,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// objectKey builds a collision-free path: a random token keeps concurrent
// submissions with identical filenames apart.
func (u *BatchUploader) objectKey(listingID, filename string) string {
	name := sanitizeFilename(path.Base(filename))
	if name == "" {
		name = "photo"
	}
	return path.Join(u.prefix, listingID, uuid.NewString()+"-"+name)
}

type countingReader struct {
	r      io.Reader
	report func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.report(int64(n))
	}
	return n, err
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
