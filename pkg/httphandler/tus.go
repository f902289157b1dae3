package httphandler

import (
	"net/http"
	"strconv"
	"strings"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Headers a browser client must be able to read
var exposeHeaders = strings.Join([]string{
	schema.TusResumableHeader,
	schema.TusVersionHeader,
	schema.TusExtensionHeader,
	schema.TusMaxSizeHeader,
	schema.UploadLengthHeader,
	schema.UploadOffsetHeader,
	schema.UploadMetaHeader,
	schema.LocationHeader,
}, ", ")

// Headers a browser client may send
var allowHeaders = strings.Join([]string{
	"Content-Type",
	schema.TusResumableHeader,
	schema.UploadLengthHeader,
	schema.UploadOffsetHeader,
	schema.UploadMetaHeader,
}, ", ")

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// tusHeaders sets CORS and protocol headers. It writes a 412 response and
// returns false when the client speaks another protocol version.
func tusHeaders(w http.ResponseWriter, r *http.Request, origin string, methods ...string) bool {
	httpresponse.Cors(w, r, origin, methods...)
	w.Header().Set(schema.ExposeHeadersHeader, exposeHeaders)
	w.Header().Set(schema.TusResumableHeader, schema.TusVersion)

	// OPTIONS is answered without a version
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		return true
	}
	if version := r.Header.Get(schema.TusResumableHeader); version != "" && version != schema.TusVersion {
		w.Header().Set(schema.TusVersionHeader, schema.TusVersion)
		_ = httpresponse.Error(w, httpresponse.Err(http.StatusPreconditionFailed).Withf("unsupported protocol version %q", version))
		return false
	}
	return true
}

// tusOptions answers a discovery request
func tusOptions(w http.ResponseWriter, maxSize int64) error {
	w.Header().Set(schema.TusVersionHeader, schema.TusVersion)
	w.Header().Set(schema.TusExtensionHeader, schema.TusExtensions)
	w.Header().Set(schema.TusMaxSizeHeader, strconv.FormatInt(maxSize, 10))
	return httpresponse.Empty(w, http.StatusNoContent)
}

// offsetHeaders describes the state of an upload
func offsetHeaders(w http.ResponseWriter, u *schema.Upload) {
	w.Header().Set(schema.UploadOffsetHeader, strconv.FormatInt(u.Offset, 10))
	w.Header().Set(schema.UploadLengthHeader, strconv.FormatInt(u.Length, 10))
}

// headerInt parses a non-negative integer header
func headerInt(r *http.Request, key string) (int64, error) {
	value := r.Header.Get(key)
	if value == "" {
		return 0, httpresponse.ErrBadRequest.Withf("missing %s header", key)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, httpresponse.ErrBadRequest.Withf("invalid %s header %q", key, value)
	}
	return n, nil
}
