package processor

import (
	"context"
	"net/http"
	"sync"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// recorder is a round tripper which stores the transport error of a request
// in the record attached to the request context
type recorder struct {
	next http.RoundTripper
}

type record struct {
	sync.Mutex
	err error
}

type recordKey struct{}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (r *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if err != nil {
		if rec, ok := req.Context().Value(recordKey{}).(*record); ok {
			rec.Lock()
			rec.err = err
			rec.Unlock()
		}
	}
	return resp, err
}

func (r *record) Err() error {
	r.Lock()
	defer r.Unlock()
	return r.err
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func withRecord(ctx context.Context) (context.Context, *record) {
	rec := new(record)
	return context.WithValue(ctx, recordKey{}, rec), rec
}
