package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"

	// Packages
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	client "github.com/mutablelogic/go-client"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Status returns the processing status of an upload
func (c *Client) Status(ctx context.Context, id string) (*schema.Status, error) {
	var response schema.Status
	if err := c.DoWithContext(ctx, client.NewRequest(), &response,
		client.OptPath(schema.DefaultStatusPath, id),
	); err != nil {
		return nil, err
	}
	return &response, nil
}

// Offset returns the declared length and the number of bytes the server
// holds for an upload
func (c *Client) Offset(ctx context.Context, id string) (length, offset int64, err error) {
	resp, err := c.do(ctx, http.MethodHead, c.uploadURL(id), nil, nil)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if length, err = headerInt(resp, schema.UploadLengthHeader); err != nil {
		return 0, 0, err
	}
	if offset, err = headerInt(resp, schema.UploadOffsetHeader); err != nil {
		return 0, 0, err
	}
	return length, offset, nil
}

// Delete abandons an upload
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.uploadURL(id), nil, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// create declares a new upload and returns its id
func (c *Client) create(ctx context.Context, length int64, meta schema.UploadMeta) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, c.uploadURL(), nil, map[string]string{
		schema.UploadLengthHeader: strconv.FormatInt(length, 10),
		schema.UploadMetaHeader:   meta.MetaHeader(),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	location, err := url.Parse(resp.Header.Get(schema.LocationHeader))
	if err != nil || location.Path == "" {
		return "", fmt.Errorf("invalid %s header %q", schema.LocationHeader, resp.Header.Get(schema.LocationHeader))
	}
	id := path.Base(location.Path)
	if !schema.IsUploadId(id) {
		return "", fmt.Errorf("invalid upload id %q", id)
	}
	return id, nil
}

// patch sends one chunk and returns the new offset
func (c *Client) patch(ctx context.Context, id string, offset int64, chunk []byte) (int64, error) {
	resp, err := c.do(ctx, http.MethodPatch, c.uploadURL(id), chunk, map[string]string{
		schema.UploadOffsetHeader: strconv.FormatInt(offset, 10),
		"Content-Type":            schema.ChunkContentType,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return headerInt(resp, schema.UploadOffsetHeader)
}

// do sends a protocol request and returns a response with a success status.
// The body is replayed on every retry.
func (c *Client) do(ctx context.Context, method, url string, body []byte, header map[string]string) (*http.Response, error) {
	var raw any
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, raw)
	if err != nil {
		return nil, err
	}
	req.Header.Set(schema.TusResumableHeader, schema.TusVersion)
	for key, value := range header {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}
	return resp, nil
}

func headerInt(resp *http.Response, key string) (int64, error) {
	value := resp.Header.Get(key)
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s header %q", key, value)
	}
	return n, nil
}
