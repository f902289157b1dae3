package httphandler

import (
	"mime"
	"net/http"
	"path"
	"strconv"

	// Packages
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
	manager "github.com/mutablelogic/go-upload/pkg/manager"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: {prefix}
// POST creates an upload from Upload-Length and Upload-Metadata, OPTIONS
// returns the protocol capabilities.
func UploadCollectionHandler(mgr *manager.Manager, prefix, origin string) (string, http.HandlerFunc, *openapi.PathItem) {
	return prefix, func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			if !tusHeaders(w, r, origin, http.MethodPost) {
				return
			}
			switch r.Method {
			case http.MethodOptions:
				_ = tusOptions(w, mgr.MaxSize())
			case http.MethodPost:
				_ = uploadCreate(w, r, mgr)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Post: &openapi.Operation{
				Description: "Create a resumable upload from the Upload-Length and Upload-Metadata headers",
			},
		})
}

// Path: {prefix}/{id}
// HEAD returns the offset, PATCH appends a chunk, DELETE abandons the upload.
func UploadHandler(mgr *manager.Manager, prefix, origin string) (string, http.HandlerFunc, *openapi.PathItem) {
	return types.JoinPath(prefix, "{id}"), func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			if !tusHeaders(w, r, origin, http.MethodHead, http.MethodPatch, http.MethodDelete) {
				return
			}
			switch r.Method {
			case http.MethodOptions:
				_ = tusOptions(w, mgr.MaxSize())
			case http.MethodHead:
				_ = uploadHead(w, r, mgr)
			case http.MethodPatch:
				_ = uploadPatch(w, r, mgr)
			case http.MethodDelete:
				_ = uploadDelete(w, r, mgr)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Head: &openapi.Operation{
				Description: "Return the current offset of an upload. PATCH with an application/offset+octet-stream body appends a chunk at Upload-Offset",
			},
			Delete: &openapi.Operation{
				Description: "Abandon an upload and remove its stored data",
			},
		})
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func uploadCreate(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	length, err := headerInt(r, schema.UploadLengthHeader)
	if err != nil {
		return httpresponse.Error(w, err)
	}
	meta, err := schema.ParseMetaHeader(r.Header.Get(schema.UploadMetaHeader))
	if err != nil {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.With(err.Error()))
	}

	// Create the upload
	u, err := mgr.CreateUpload(r.Context(), schema.CreateUploadRequest{
		Length: length,
		Meta:   meta,
	})
	if err != nil {
		return httpresponse.Error(w, err)
	}

	// Return the location of the new upload
	w.Header().Set(schema.LocationHeader, path.Join(r.URL.Path, u.Id))
	offsetHeaders(w, u)
	return httpresponse.JSON(w, http.StatusCreated, httprequest.Indent(r), u)
}

func uploadHead(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	u, err := mgr.GetUpload(r.Context(), r.PathValue("id"))
	if err != nil {
		return httpresponse.Error(w, err)
	}
	offsetHeaders(w, u)
	if len(u.Meta) > 0 {
		w.Header().Set(schema.UploadMetaHeader, u.Meta.MetaHeader())
	}
	w.Header().Set(schema.CacheControlHeader, "no-store")
	return httpresponse.Empty(w, http.StatusOK)
}

func uploadPatch(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	if mediatype, _, _ := mime.ParseMediaType(r.Header.Get(types.ContentTypeHeader)); mediatype != schema.ChunkContentType {
		return httpresponse.Error(w, httpresponse.Err(http.StatusUnsupportedMediaType).Withf("expected content type %q", schema.ChunkContentType))
	}
	offset, err := headerInt(r, schema.UploadOffsetHeader)
	if err != nil {
		return httpresponse.Error(w, err)
	}

	// Append the chunk, which may complete and finalize the upload
	u, err := mgr.AppendChunk(r.Context(), r.PathValue("id"), offset, r.Body)
	if err != nil {
		return httpresponse.Error(w, err)
	}
	w.Header().Set(schema.UploadOffsetHeader, strconv.FormatInt(u.Offset, 10))
	return httpresponse.Empty(w, http.StatusNoContent)
}

func uploadDelete(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	if _, err := mgr.DeleteUpload(r.Context(), r.PathValue("id")); err != nil {
		return httpresponse.Error(w, err)
	}
	return httpresponse.Empty(w, http.StatusNoContent)
}
