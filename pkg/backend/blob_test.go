package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func newTestUpload(id string, length int64) schema.Upload {
	return schema.Upload{
		Id:     id,
		Length: length,
		Meta: schema.UploadMeta{
			schema.MetaFilename: "data.csv",
			schema.MetaFiletype: "text/csv",
		},
	}
}

func TestNewBlobBackend(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		url     string
		opts    []Opt
		store   string
		prefix  string
		wantErr bool
	}{
		{name: "mem", url: "mem://uploads", store: "uploads"},
		{name: "mem with prefix", url: "mem://uploads/incoming/", store: "uploads", prefix: "incoming"},
		{name: "file", url: "file://uploads" + t.TempDir(), store: "uploads"},
		{name: "s3", url: "s3://bucket/uploads", opts: []Opt{WithAWSConfig(aws.Config{Region: "eu-west-1"})}, store: "bucket", prefix: "uploads"},
		{name: "s3 with endpoint", url: "s3://bucket", opts: []Opt{WithEndpoint("http://localhost:9000"), WithCredentials("key", "secret"), WithRegion("us-east-1")}, store: "bucket"},
		{name: "missing name", url: "mem://", wantErr: true},
		{name: "unsupported scheme", url: "ftp://uploads", wantErr: true},
		{name: "relative file", url: "file://uploads", wantErr: true},
		{name: "bad endpoint", url: "s3://bucket", opts: []Opt{WithEndpoint("ftp://localhost")}, wantErr: true},
		{name: "half credentials", url: "s3://bucket", opts: []Opt{WithCredentials("key", "")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := NewBlobBackend(ctx, tt.url, tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer backend.Close()
			assert.Equal(t, tt.store, backend.Name())
			assert.Equal(t, tt.prefix, backend.prefix)
			assert.Empty(t, backend.URL().RawQuery)
		})
	}
}

func TestPartKey(t *testing.T) {
	backend, err := NewBlobBackend(context.Background(), "mem://uploads/incoming")
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, "incoming/abc.info", backend.infoKey("abc"))
	assert.Equal(t, "incoming/abc", backend.objectKey("abc"))
	assert.Equal(t, "incoming/abc.part/00000000000000000500", backend.partKey("abc", 500))
}

func TestUploadDocument(t *testing.T) {
	ctx := context.Background()
	backend, err := NewBlobBackend(ctx, "mem://uploads")
	require.NoError(t, err)
	defer backend.Close()

	t.Run("create and get", func(t *testing.T) {
		assert := assert.New(t)
		created, err := backend.CreateUpload(ctx, newTestUpload("a1", 100))
		require.NoError(t, err)
		assert.Equal(int64(0), created.Offset)
		assert.False(created.Created.IsZero())

		upload, err := backend.GetUpload(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(int64(100), upload.Length)
		assert.Equal("data.csv", upload.Filename())
	})

	t.Run("create twice", func(t *testing.T) {
		_, err := backend.CreateUpload(ctx, newTestUpload("a1", 100))
		assert.True(t, errors.Is(err, httpresponse.ErrConflict))
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := backend.GetUpload(ctx, "missing")
		assert.True(t, errors.Is(err, httpresponse.ErrNotFound))
	})

	t.Run("get invalid id", func(t *testing.T) {
		_, err := backend.GetUpload(ctx, "../etc/passwd")
		assert.True(t, errors.Is(err, httpresponse.ErrNotFound))
	})

	t.Run("update metadata", func(t *testing.T) {
		upload, err := backend.GetUpload(ctx, "a1")
		require.NoError(t, err)
		upload.Meta["extra"] = "value"
		_, err = backend.UpdateUpload(ctx, *upload)
		require.NoError(t, err)

		upload, err = backend.GetUpload(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "value", upload.Meta["extra"])
	})

	t.Run("update cannot change length", func(t *testing.T) {
		upload, err := backend.GetUpload(ctx, "a1")
		require.NoError(t, err)
		upload.Length = 10
		_, err = backend.UpdateUpload(ctx, *upload)
		assert.Error(t, err)
	})

	t.Run("update cannot move offset backwards", func(t *testing.T) {
		upload, err := backend.GetUpload(ctx, "a1")
		require.NoError(t, err)
		upload.Offset = 50
		_, err = backend.UpdateUpload(ctx, *upload)
		require.NoError(t, err)
		upload.Offset = 10
		_, err = backend.UpdateUpload(ctx, *upload)
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := backend.DeleteUpload(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "a1", deleted.Id)
		_, err = backend.GetUpload(ctx, "a1")
		assert.True(t, errors.Is(err, httpresponse.ErrNotFound))
	})
}

func TestChunks(t *testing.T) {
	ctx := context.Background()
	backend, err := NewBlobBackend(ctx, "file://uploads"+t.TempDir())
	require.NoError(t, err)
	defer backend.Close()

	upload, err := backend.CreateUpload(ctx, newTestUpload("b1", 10))
	require.NoError(t, err)

	t.Run("empty chunk stores nothing", func(t *testing.T) {
		n, err := backend.WriteChunk(ctx, "b1", 0, strings.NewReader(""), 10)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		parts, err := backend.listParts(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, parts)
	})

	t.Run("overflow is rejected", func(t *testing.T) {
		_, err := backend.WriteChunk(ctx, "b1", 0, strings.NewReader("0123456789X"), 10)
		assert.Error(t, err)
		parts, err := backend.listParts(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, parts)
	})

	t.Run("commit before complete fails", func(t *testing.T) {
		n, err := backend.WriteChunk(ctx, "b1", 0, strings.NewReader("01234"), 10)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
		assert.Error(t, backend.Commit(ctx, *upload))
	})

	t.Run("commit assembles chunks in order", func(t *testing.T) {
		n, err := backend.WriteChunk(ctx, "b1", 5, strings.NewReader("56789"), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
		require.NoError(t, backend.Commit(ctx, *upload))

		r, err := backend.ReadUpload(ctx, "b1")
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(data))
	})

	t.Run("complete update removes chunks", func(t *testing.T) {
		upload.Offset = upload.Length
		_, err := backend.UpdateUpload(ctx, *upload)
		require.NoError(t, err)
		parts, err := backend.listParts(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, parts)
	})
}

func TestCommitGap(t *testing.T) {
	ctx := context.Background()
	backend, err := NewBlobBackend(ctx, "mem://uploads")
	require.NoError(t, err)
	defer backend.Close()

	upload, err := backend.CreateUpload(ctx, newTestUpload("c1", 6))
	require.NoError(t, err)
	_, err = backend.WriteChunk(ctx, "c1", 0, bytes.NewReader([]byte("abc")), 6)
	require.NoError(t, err)
	_, err = backend.WriteChunk(ctx, "c1", 4, bytes.NewReader([]byte("ef")), 2)
	require.NoError(t, err)
	assert.Error(t, backend.Commit(ctx, *upload))
}

func TestPing(t *testing.T) {
	backend, err := NewBlobBackend(context.Background(), "mem://uploads")
	require.NoError(t, err)
	defer backend.Close()
	assert.NoError(t, backend.Ping(context.Background()))
}
