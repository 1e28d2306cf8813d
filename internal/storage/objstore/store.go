package objstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/EvershineMarbles/EvershineBackend/internal/config"
	"github.com/EvershineMarbles/EvershineBackend/internal/model"
)

// API is the subset of the S3 client the store needs.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ImageStore keeps product images in a bucket and hands out public URLs.
type ImageStore interface {
	// UploadAll stores files in parallel and returns their URLs in input
	// order. On any failure no uploaded object is left behind.
	UploadAll(ctx context.Context, files []model.ImageFile) ([]string, error)
	// DeleteAll removes the objects behind urls. Failures are logged only.
	DeleteAll(ctx context.Context, urls []string)
}

type S3Store struct {
	api     API
	logger  *slog.Logger
	bucket  string
	prefix  string
	baseURL string
	now     func() time.Time
}

var _ ImageStore = (*S3Store)(nil)

func NewS3Store(cfg config.S3, api API, logger *slog.Logger) *S3Store {
	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Store{
		api:     api,
		logger:  logger.With(slog.String("service", "image_store")),
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.KeyPrefix, "/"),
		baseURL: baseURL,
		now:     time.Now,
	}
}

func (s *S3Store) UploadAll(ctx context.Context, files []model.ImageFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	stamp := s.now().UnixNano()
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = s.objectKey(stamp, i, f.Filename)
	}

	var (
		mu       sync.Mutex
		uploaded []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			if _, err := s.api.PutObject(gctx, &s3.PutObjectInput{
				Bucket:        aws.String(s.bucket),
				Key:           aws.String(keys[i]),
				Body:          bytes.NewReader(f.Data),
				ContentType:   aws.String(f.ContentType),
				ContentLength: aws.Int64(int64(len(f.Data))),
			}); err != nil {
				return fmt.Errorf("put object %q for %q: %w", keys[i], f.Filename, err)
			}

			mu.Lock()
			uploaded = append(uploaded, keys[i])
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// The batch context is already cancelled; clean up on the caller's.
		s.deleteKeys(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}

	urls := make([]string, len(keys))
	for i, key := range keys {
		urls[i] = s.URL(key)
	}

	s.logger.InfoContext(ctx, "uploaded images", slog.Int("count", len(urls)))
	return urls, nil
}

func (s *S3Store) DeleteAll(ctx context.Context, urls []string) {
	keys := make([]string, 0, len(urls))
	for _, url := range urls {
		key, ok := s.KeyFromURL(url)
		if !ok {
			s.logger.WarnContext(ctx, "skip deleting foreign image url", slog.String("url", url))
			continue
		}
		keys = append(keys, key)
	}
	s.deleteKeys(ctx, keys)
}

func (s *S3Store) deleteKeys(ctx context.Context, keys []string) {
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Go(func() {
			if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			}); err != nil {
				s.logger.ErrorContext(ctx,
					"error deleting image",
					slog.String("key", key),
					slog.Any("error", err),
				)
			}
		})
	}
	wg.Wait()
}

// URL returns the public URL of key.
func (s *S3Store) URL(key string) string {
	return s.baseURL + "/" + key
}

// KeyFromURL reverses URL. It reports false for URLs this store did not
// produce.
func (s *S3Store) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || key == "" {
		return "", false
	}
	if s.prefix != "" && !strings.HasPrefix(key, s.prefix+"/") {
		return "", false
	}
	return key, true
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *S3Store) objectKey(stamp int64, index int, filename string) string {
	name := unsafeChars.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "image"
	}

	key := fmt.Sprintf("%d-%d-%s", stamp, index, name)
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}
