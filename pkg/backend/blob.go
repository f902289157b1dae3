package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	upload "github.com/mutablelogic/go-upload"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	blob "gocloud.dev/blob"
	s3blob "gocloud.dev/blob/s3blob"
	gcerrors "gocloud.dev/gcerrors"

	// Drivers
	_ "gocloud.dev/blob/fileblob" // file:// URLs
	_ "gocloud.dev/blob/memblob"  // mem:// URLs
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type blobbackend struct {
	*opt
	bucket *blob.Bucket
	prefix string // key prefix within the bucket, empty for file://
}

var _ upload.Store = (*blobbackend)(nil)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	infoExt   = ".info"
	partExt   = ".part/"
	partWidth = 20
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewBlobBackend creates a chunk store on a Go CDK bucket.
// Supported URL schemes: s3://, file://, mem://
// Examples:
//   - "s3://my-bucket/uploads?region=eu-west-1"
//   - "file://uploads/var/lib/uploads"
//   - "mem://uploads"
//
// For s3:// the path is a key prefix. For file:// the host is the store name
// and the path is the root directory.
func NewBlobBackend(ctx context.Context, u string, opts ...Opt) (*blobbackend, error) {
	self := new(blobbackend)

	// Set the options
	if url, err := url.Parse(u); err != nil {
		return nil, err
	} else if opt, err := apply(url, opts...); err != nil {
		return nil, err
	} else {
		self.opt = opt
	}

	// Validate the store name
	if self.url.Host == "" {
		return nil, fmt.Errorf("missing store name in %q", u)
	}
	if self.url.Scheme != "file" {
		self.prefix = strings.Trim(self.url.Path, "/")
	}

	// Open the bucket
	var bucket *blob.Bucket
	var err error
	switch self.url.Scheme {
	case "s3":
		bucket, err = self.openS3(ctx)
	case "file":
		if !path.IsAbs(self.url.Path) || self.url.Path == "/" {
			return nil, fmt.Errorf("file store %q needs an absolute directory", self.url.Host)
		}
		openURL := &url.URL{Scheme: "file", Path: self.url.Path, RawQuery: self.url.RawQuery}
		bucket, err = blob.OpenBucket(ctx, openURL.String())
	case "mem":
		bucket, err = blob.OpenBucket(ctx, "mem://")
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", self.url.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	self.bucket = bucket

	return self, nil
}

// Close the backend
func (b *blobbackend) Close() error {
	var result error
	if b.bucket != nil {
		result = errors.Join(result, b.bucket.Close())
		b.bucket = nil
	}

	// Return any errors
	return result
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Name returns the name of the store (the host component of the URL)
func (b *blobbackend) Name() string {
	return b.url.Host
}

// URL returns the store URL without query parameters
func (b *blobbackend) URL() *url.URL {
	u := *b.url
	u.RawQuery = ""
	u.User = nil
	return &u
}

// Ping checks the bucket is accessible
func (b *blobbackend) Ping(ctx context.Context) error {
	if ok, err := b.bucket.IsAccessible(ctx); err != nil {
		return blobErr(err, b.Name())
	} else if !ok {
		return httpresponse.ErrInternalError.Withf("store %q is not accessible", b.Name())
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (b *blobbackend) openS3(ctx context.Context) (*blob.Bucket, error) {
	cfg, err := b.aws(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.endpoint != "" {
			o.BaseEndpoint = aws.String(b.endpoint)
			o.UsePathStyle = true
		}
	})
	return s3blob.OpenBucket(ctx, client, b.url.Host, nil)
}

// key returns the bucket key for a name within the store
func (b *blobbackend) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + "/" + name
}

func (b *blobbackend) infoKey(id string) string {
	return b.key(id + infoExt)
}

func (b *blobbackend) objectKey(id string) string {
	return b.key(id)
}

func (b *blobbackend) partPrefix(id string) string {
	return b.key(id + partExt)
}

func (b *blobbackend) partKey(id string, offset int64) string {
	return fmt.Sprintf("%s%0*d", b.partPrefix(id), partWidth, offset)
}

// checkId returns a not found error for identifiers which cannot be keys
func checkId(id string) error {
	if !schema.IsUploadId(id) {
		return httpresponse.ErrNotFound.Withf("upload %q not found", id)
	}
	return nil
}

// blobErr wraps a go-cloud blob error with the appropriate httpresponse error
func blobErr(err error, key string) error {
	if err == nil {
		return nil
	}
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return httpresponse.ErrNotFound.Withf("%q not found", key)
	case gcerrors.PermissionDenied:
		return httpresponse.ErrForbidden.Withf("permission denied for %q", key)
	case gcerrors.InvalidArgument:
		return httpresponse.ErrBadRequest.Withf("invalid argument for %q: %v", key, err)
	case gcerrors.FailedPrecondition, gcerrors.AlreadyExists:
		return httpresponse.ErrConflict.Withf("precondition failed for %q: %v", key, err)
	case gcerrors.Canceled, gcerrors.DeadlineExceeded:
		return err
	default:
		return httpresponse.ErrInternalError.Withf("blob operation failed: %v", err)
	}
}
