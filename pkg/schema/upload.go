package schema

import (
	"maps"
	"time"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// CONSTANTS

// MaxIdLength is the longest upload identifier accepted from a request path.
const MaxIdLength = 64

////////////////////////////////////////////////////////////////////////////////
// TYPES

// UploadMeta is the open string map attached to an upload. Creation sets
// filename and filetype, finalization adds the processing_* keys.
type UploadMeta map[string]string

// Upload is one resumable transfer.
type Upload struct {
	Id       string     `json:"id"`
	Length   int64      `json:"length"`
	Offset   int64      `json:"offset"`
	Meta     UploadMeta `json:"meta,omitempty"`
	Created  time.Time  `json:"created,omitzero"`
	Modified time.Time  `json:"modified,omitzero"`
}

// CreateUploadRequest declares a new upload
type CreateUploadRequest struct {
	Length int64      `json:"length"`
	Meta   UploadMeta `json:"meta,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Complete is true when every declared byte has been received
func (u Upload) Complete() bool {
	return u.Offset == u.Length
}

// Remaining returns the number of bytes still expected
func (u Upload) Remaining() int64 {
	return u.Length - u.Offset
}

// Filename returns the filename set at creation, or the id
func (u Upload) Filename() string {
	if name := u.Meta[MetaFilename]; name != "" {
		return name
	}
	return u.Id
}

// Filetype returns the declared content type
func (u Upload) Filetype() string {
	return u.Meta[MetaFiletype]
}

// Outcome returns the finalization outcome recorded in the metadata
func (u Upload) Outcome() Outcome {
	return OutcomeFromMeta(u.Meta)
}

// Clone returns a copy which does not share the metadata map
func (u Upload) Clone() Upload {
	u.Meta = maps.Clone(u.Meta)
	return u
}

// IsUploadId returns true if the identifier is safe to use as a storage key:
// letters, digits, hyphen or underscore, at most MaxIdLength characters.
func IsUploadId(id string) bool {
	if id == "" || len(id) > MaxIdLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			continue
		default:
			return false
		}
	}
	return true
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (u Upload) String() string {
	return types.Stringify(u)
}

func (r CreateUploadRequest) String() string {
	return types.Stringify(r)
}
