package backend

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	types "github.com/mutablelogic/go-server/pkg/types"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	blob "gocloud.dev/blob"
	gcerrors "gocloud.dev/gcerrors"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// CreateUpload writes the document for a new upload
func (b *blobbackend) CreateUpload(ctx context.Context, req schema.Upload) (*schema.Upload, error) {
	if err := checkId(req.Id); err != nil {
		return nil, httpresponse.ErrBadRequest.Withf("invalid upload id %q", req.Id)
	}

	// Reject if the upload already exists
	if _, err := b.bucket.Attributes(ctx, b.infoKey(req.Id)); err == nil {
		return nil, httpresponse.ErrConflict.Withf("upload %q already exists", req.Id)
	} else if gcerrors.Code(err) != gcerrors.NotFound {
		return nil, blobErr(err, b.infoKey(req.Id))
	}

	// Set timestamps, a new upload has received nothing
	now := time.Now().UTC()
	upload := req.Clone()
	upload.Offset = 0
	upload.Created = now
	upload.Modified = now
	if err := b.writeInfo(ctx, upload); err != nil {
		return nil, err
	}

	// Return success
	return &upload, nil
}

// GetUpload reads the document for an upload
func (b *blobbackend) GetUpload(ctx context.Context, id string) (*schema.Upload, error) {
	if err := checkId(id); err != nil {
		return nil, err
	}
	data, err := b.bucket.ReadAll(ctx, b.infoKey(id))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, httpresponse.ErrNotFound.Withf("upload %q not found", id)
	} else if err != nil {
		return nil, blobErr(err, b.infoKey(id))
	}

	var upload schema.Upload
	if err := json.Unmarshal(data, &upload); err != nil {
		return nil, httpresponse.ErrInternalError.Withf("upload %q: %v", id, err)
	}
	return &upload, nil
}

// UpdateUpload replaces the document of an existing upload. When the upload
// is complete, any remaining chunks are removed after the write.
func (b *blobbackend) UpdateUpload(ctx context.Context, req schema.Upload) (*schema.Upload, error) {
	current, err := b.GetUpload(ctx, req.Id)
	if err != nil {
		return nil, err
	} else if req.Length != current.Length {
		return nil, httpresponse.ErrConflict.Withf("upload %q length is immutable", req.Id)
	} else if req.Offset < current.Offset || req.Offset > current.Length {
		return nil, httpresponse.ErrConflict.Withf("upload %q offset %d is out of range", req.Id, req.Offset)
	}

	upload := req.Clone()
	upload.Created = current.Created
	upload.Modified = time.Now().UTC()
	if err := b.writeInfo(ctx, upload); err != nil {
		return nil, err
	}

	// Chunks are not needed once the object has been assembled
	if upload.Complete() {
		if err := b.deleteParts(ctx, upload.Id); err != nil {
			return nil, err
		}
	}

	// Return success
	return &upload, nil
}

// DeleteUpload removes the upload document, chunks and assembled object
func (b *blobbackend) DeleteUpload(ctx context.Context, id string) (*schema.Upload, error) {
	upload, err := b.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}

	var result error
	result = errors.Join(result, b.deleteParts(ctx, id))
	result = errors.Join(result, b.deleteKey(ctx, b.objectKey(id)))
	result = errors.Join(result, b.deleteKey(ctx, b.infoKey(id)))
	if result != nil {
		return nil, result
	}

	// Return the deleted upload
	return upload, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (b *blobbackend) writeInfo(ctx context.Context, upload schema.Upload) error {
	data, err := json.Marshal(upload)
	if err != nil {
		return err
	}
	if err := b.bucket.WriteAll(ctx, b.infoKey(upload.Id), data, &blob.WriterOptions{
		ContentType: types.ContentTypeJSON,
	}); err != nil {
		return blobErr(err, b.infoKey(upload.Id))
	}
	return nil
}

// deleteKey deletes a single key, ignoring keys which do not exist
func (b *blobbackend) deleteKey(ctx context.Context, key string) error {
	if err := b.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return blobErr(err, key)
	}
	return nil
}
