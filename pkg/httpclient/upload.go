package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	errgroup "golang.org/x/sync/errgroup"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Consecutive offset conflicts tolerated before a chunk fails
const maxResync = 3

// wellKnownMIME maps file extensions that the mime package may not know
// about to their canonical type
var wellKnownMIME = map[string]string{
	".csv": "text/csv",
	".tsv": "text/tab-separated-values",
	".txt": "text/plain",
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// UploadFiles uploads files in parallel and waits for their outcomes. The
// results are in the order of the paths. The first error cancels the
// uploads still running.
func (c *Client) UploadFiles(ctx context.Context, paths ...string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for i, path := range paths {
		g.Go(func() error {
			result, err := c.UploadFile(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// UploadFile uploads one file and waits for its outcome
func (c *Client) UploadFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	} else if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file")
	}
	return c.Upload(ctx, filepath.Base(path), f, info.Size(), info.ModTime())
}

// Upload sends size bytes from r under a file name and waits for the
// outcome. A previous upload of the same file is resumed from the server
// offset. Rejections and transport errors are returned as errors, a failed
// or unknown processing outcome as the state of the result.
func (c *Client) Upload(ctx context.Context, name string, r io.ReaderAt, size int64, modtime time.Time) (*Result, error) {
	u := &upload{
		Client:  c,
		current: Progress{Name: name, Length: size},
		logger:  c.logger.With(slog.String("file", name)),
	}
	u.report(Idle)
	return u.run(ctx, r, modtime)
}

///////////////////////////////////////////////////////////////////////////////
// TYPES

// upload is the state of one file transfer
type upload struct {
	*Client
	current Progress
	logger  *slog.Logger
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (u *upload) run(ctx context.Context, r io.ReaderAt, modtime time.Time) (*Result, error) {
	name, size := u.current.Name, u.current.Length
	fp := fingerprint(u.endpoint.String()+u.path, name, size, modtime)

	// Resume or create
	u.report(Discovering)
	if err := u.discover(ctx, fp); err != nil {
		return nil, err
	}

	// Send the remaining chunks
	u.report(Transferring)
	if err := u.transfer(ctx, r); err != nil {
		return nil, err
	}
	u.resume.Delete(fp)
	u.report(Completed)

	// Wait for the outcome
	u.report(Polling)
	status, err := u.poll(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{Name: name, Id: u.current.Id, Length: size, Status: status}
	switch status.Status {
	case schema.StatusSuccess:
		result.State = Succeeded
	case schema.StatusError:
		result.State = Failed
	default:
		result.State = GaveUp
	}
	u.report(result.State)
	u.logger.Debug("upload finished", slog.String("upload", result.Id), slog.String("state", result.State.String()))

	return result, nil
}

// discover resumes a remembered upload which the server still holds, or
// creates a new one
func (u *upload) discover(ctx context.Context, fp string) error {
	if id, exists := u.resume.Get(fp); exists {
		length, offset, err := u.Offset(ctx, id)
		var rejected *RejectedError
		switch {
		case err == nil && length == u.current.Length:
			u.logger.Info("resuming upload", slog.String("upload", id), slog.Int64("offset", offset))
			u.current.Id, u.current.BytesSent = id, offset
			return nil
		case err == nil, errors.As(err, &rejected):
			u.resume.Delete(fp)
		default:
			return err
		}
	}

	// Create a new upload
	id, err := u.create(ctx, u.current.Length, schema.UploadMeta{
		schema.MetaFilename: u.current.Name,
		schema.MetaFiletype: u.filetypeOf(u.current.Name),
	})
	if err != nil {
		return err
	}
	u.resume.Set(fp, id)
	u.current.Id, u.current.BytesSent = id, 0
	u.logger.Debug("upload created", slog.String("upload", id))
	return nil
}

// transfer sends chunks in sequence from the current offset. An offset
// conflict resynchronizes from the server.
func (u *upload) transfer(ctx context.Context, r io.ReaderAt) error {
	buf := make([]byte, min(u.chunkSize, u.current.Length))
	resync := 0
	for u.current.BytesSent < u.current.Length {
		offset := u.current.BytesSent
		chunk := buf[:min(u.chunkSize, u.current.Length-offset)]
		if n, err := r.ReadAt(chunk, offset); n < len(chunk) {
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("read %d of %d bytes at offset %d: %w", n, len(chunk), offset, err)
		}

		next, err := u.patch(ctx, u.current.Id, offset, chunk)
		var rejected *RejectedError
		if errors.As(err, &rejected) && rejected.StatusCode == http.StatusConflict && resync < maxResync {
			resync++
			_, next, err = u.Offset(ctx, u.current.Id)
			if err != nil {
				return err
			}
			u.logger.Warn("offset conflict, resuming from server offset", slog.Int64("offset", next))
			u.current.BytesSent = next
			continue
		} else if err != nil {
			return err
		} else if next <= offset || next > u.current.Length {
			return fmt.Errorf("server offset %d after chunk at %d", next, offset)
		}

		resync = 0
		u.current.BytesSent = next
		u.report(Transferring)
	}
	return nil
}

// poll waits for the settle delay, then checks the status until it is
// terminal or the checks are used up
func (u *upload) poll(ctx context.Context) (*schema.Status, error) {
	delay := u.settle
	for check := 0; ; check++ {
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		status, err := u.Status(ctx, u.current.Id)
		if err != nil {
			return nil, err
		}
		if status.Status != schema.StatusUnknown || check+1 >= u.checks {
			return status, nil
		}
		delay = u.interval
	}
}

func (u *upload) filetypeOf(name string) string {
	if u.filetype != "" {
		return u.filetype
	}
	ext := strings.ToLower(filepath.Ext(name))
	if filetype, exists := wellKnownMIME[ext]; exists {
		return filetype
	}
	if filetype := mime.TypeByExtension(ext); filetype != "" {
		return filetype
	}
	return "application/octet-stream"
}

func (u *upload) report(state State) {
	u.current.State = state
	if u.Client.progress != nil {
		u.Client.progress(u.current)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
