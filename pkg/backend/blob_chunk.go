package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	blob "gocloud.dev/blob"
	gcerrors "gocloud.dev/gcerrors"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type part struct {
	key    string
	offset int64
	size   int64
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WriteChunk stores one chunk starting at offset. At most max bytes are read;
// a body longer than that is rejected and nothing is stored. An empty body
// stores nothing and returns zero.
func (b *blobbackend) WriteChunk(ctx context.Context, id string, offset int64, r io.Reader, max int64) (int64, error) {
	if err := checkId(id); err != nil {
		return 0, err
	}
	key := b.partKey(id, offset)

	// Cancelling the writer context discards the write
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := b.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: schema.ChunkContentType,
	})
	if err != nil {
		return 0, blobErr(err, key)
	}

	// Copy one byte more than allowed to detect an overflow
	n, err := io.Copy(w, io.LimitReader(r, max+1))
	switch {
	case err != nil:
		cancel()
		_ = w.Close()
		return 0, httpresponse.ErrBadRequest.Withf("chunk at offset %d: %v", offset, err)
	case n > max:
		cancel()
		_ = w.Close()
		return 0, httpresponse.Err(http.StatusRequestEntityTooLarge).Withf("chunk at offset %d exceeds the declared length by at least one byte", offset)
	case n == 0:
		cancel()
		_ = w.Close()
		return 0, nil
	}
	if err := w.Close(); err != nil {
		return 0, blobErr(err, key)
	}

	// Return success
	return n, nil
}

// Commit assembles the chunks of a complete upload into the upload object.
// The chunks must be contiguous from zero to the declared length.
func (b *blobbackend) Commit(ctx context.Context, upload schema.Upload) error {
	parts, err := b.listParts(ctx, upload.Id)
	if err != nil {
		return err
	}

	// Check the chunks cover the whole upload
	var offset int64
	for _, p := range parts {
		if p.offset != offset {
			return httpresponse.ErrInternalError.Withf("upload %q: missing bytes at offset %d", upload.Id, offset)
		}
		offset += p.size
	}
	if offset != upload.Length {
		return httpresponse.ErrInternalError.Withf("upload %q: stored %d of %d bytes", upload.Id, offset, upload.Length)
	}

	// Metadata for the object
	meta := make(map[string]string, 2)
	if name := upload.Meta[schema.MetaFilename]; name != "" {
		meta[schema.MetaFilename] = name
	}
	if filetype := upload.Filetype(); filetype != "" {
		meta[schema.MetaFiletype] = filetype
	}

	// Stream the chunks into the object in order
	key := b.objectKey(upload.Id)
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := b.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: upload.Filetype(),
		Metadata:    meta,
	})
	if err != nil {
		return blobErr(err, key)
	}
	for _, p := range parts {
		if err := b.copyPart(ctx, w, p); err != nil {
			cancel()
			return errors.Join(err, w.Close())
		}
	}
	if err := w.Close(); err != nil {
		return blobErr(err, key)
	}

	// Return success
	return nil
}

// ReadUpload returns a reader for the assembled object of a complete upload.
// Caller must close the reader.
func (b *blobbackend) ReadUpload(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := checkId(id); err != nil {
		return nil, err
	}
	r, err := b.bucket.NewReader(ctx, b.objectKey(id), nil)
	if err != nil {
		return nil, blobErr(err, b.objectKey(id))
	}
	return r, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// listParts returns the chunks of an upload in offset order
func (b *blobbackend) listParts(ctx context.Context, id string) ([]part, error) {
	prefix := b.partPrefix(id)
	iter := b.bucket.List(&blob.ListOptions{
		Prefix: prefix,
	})

	// Keys are zero-padded so lexical order is offset order
	var parts []part
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, blobErr(err, prefix)
		}
		if obj.IsDir {
			continue
		}
		offset, err := strconv.ParseInt(strings.TrimPrefix(obj.Key, prefix), 10, 64)
		if err != nil {
			continue
		}
		parts = append(parts, part{key: obj.Key, offset: offset, size: obj.Size})
	}

	// Return the parts
	return parts, nil
}

func (b *blobbackend) copyPart(ctx context.Context, w io.Writer, p part) error {
	r, err := b.bucket.NewReader(ctx, p.key, nil)
	if err != nil {
		return blobErr(err, p.key)
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		return blobErr(err, p.key)
	}
	return nil
}

func (b *blobbackend) deleteParts(ctx context.Context, id string) error {
	parts, err := b.listParts(ctx, id)
	if err != nil {
		return err
	}
	var result error
	for _, p := range parts {
		if err := b.bucket.Delete(ctx, p.key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			result = errors.Join(result, blobErr(err, p.key))
		}
	}
	return result
}
