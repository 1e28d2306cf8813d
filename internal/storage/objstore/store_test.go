package objstore_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvershineMarbles/EvershineBackend/internal/config"
	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/objstore"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	// failOn makes PutObject fail for keys containing it.
	failOn       string
	failOnDelete bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.failOnDelete {
		return nil, errors.New("service unavailable")
	}
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func newStore(api objstore.API, baseURL string) *objstore.S3Store {
	cfg := config.S3{
		Region:        "ap-south-1",
		Bucket:        "evershine",
		KeyPrefix:     "products",
		PublicBaseURL: baseURL,
	}
	return objstore.NewS3Store(cfg, api, slog.New(slog.DiscardHandler))
}

func files(names ...string) []model.ImageFile {
	out := make([]model.ImageFile, len(names))
	for i, n := range names {
		out[i] = model.ImageFile{Filename: n, ContentType: "image/png", Data: []byte(n)}
	}
	return out
}

func TestUploadAll(t *testing.T) {
	t.Run("Should return urls in input order", func(t *testing.T) {
		api := newFakeS3()
		store := newStore(api, "")

		urls, err := store.UploadAll(context.Background(), files("b.png", "a.png", "my photo (1).png"))
		require.NoError(t, err)
		require.Len(t, urls, 3)

		prefix := "https://evershine.s3.ap-south-1.amazonaws.com/products/"
		for i, suffix := range []string{"-0-b.png", "-1-a.png", "-2-my_photo_1_.png"} {
			assert.True(t, strings.HasPrefix(urls[i], prefix), urls[i])
			assert.True(t, strings.HasSuffix(urls[i], suffix), urls[i])

			key, ok := store.KeyFromURL(urls[i])
			require.True(t, ok)
			assert.Contains(t, api.objects, key)
		}
		key, _ := store.KeyFromURL(urls[1])
		assert.Equal(t, []byte("a.png"), api.objects[key])
	})

	t.Run("Should remove uploaded objects when one fails", func(t *testing.T) {
		api := newFakeS3()
		api.failOn = "bad"
		store := newStore(api, "")

		urls, err := store.UploadAll(context.Background(), files("a.png", "bad.png", "c.png"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.png")
		assert.Nil(t, urls)
		assert.Empty(t, api.objects)
	})

	t.Run("Should do nothing without files", func(t *testing.T) {
		urls, err := newStore(newFakeS3(), "").UploadAll(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, urls)
	})
}

func TestDeleteAll(t *testing.T) {
	t.Run("Should delete own urls and skip foreign ones", func(t *testing.T) {
		api := newFakeS3()
		store := newStore(api, "http://localhost:9000/evershine/")

		urls, err := store.UploadAll(context.Background(), files("a.png", "b.png"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(urls[0], "http://localhost:9000/evershine/products/"))

		store.DeleteAll(context.Background(), append(urls, "https://elsewhere.example/x.png"))
		assert.Empty(t, api.objects)
		assert.Len(t, api.deleted, 2)
	})

	t.Run("Should swallow delete failures", func(t *testing.T) {
		api := newFakeS3()
		store := newStore(api, "")
		urls, err := store.UploadAll(context.Background(), files("a.png"))
		require.NoError(t, err)

		api.failOnDelete = true
		assert.NotPanics(t, func() { store.DeleteAll(context.Background(), urls) })
		assert.Len(t, api.objects, 1)
	})
}

func TestKeyFromURL(t *testing.T) {
	store := newStore(newFakeS3(), "")

	key, ok := store.KeyFromURL("https://evershine.s3.ap-south-1.amazonaws.com/products/1-0-a.png")
	require.True(t, ok)
	assert.Equal(t, "products/1-0-a.png", key)

	_, ok = store.KeyFromURL("https://evershine.s3.ap-south-1.amazonaws.com/other/1-0-a.png")
	assert.False(t, ok)

	_, ok = store.KeyFromURL("https://evershine.s3.ap-south-1.amazonaws.com/")
	assert.False(t, ok)
}
