package schema

////////////////////////////////////////////////////////////////////////////////
// TYPES

const (
	SchemaName = "upload"

	// TusVersion is the only resumable protocol version spoken by the server
	TusVersion = "1.0.0"

	// TusExtensions advertised on OPTIONS
	TusExtensions = "creation,termination"

	// ChunkContentType is the required Content-Type of a PATCH body
	ChunkContentType = "application/offset+octet-stream"
)

// Protocol headers
const (
	TusResumableHeader  = "Tus-Resumable"
	TusVersionHeader    = "Tus-Version"
	TusExtensionHeader  = "Tus-Extension"
	TusMaxSizeHeader    = "Tus-Max-Size"
	UploadLengthHeader  = "Upload-Length"
	UploadOffsetHeader  = "Upload-Offset"
	UploadMetaHeader    = "Upload-Metadata"
	LocationHeader      = "Location"
	CacheControlHeader  = "Cache-Control"
	ExposeHeadersHeader = "Access-Control-Expose-Headers"
)

// Metadata keys set on creation
const (
	MetaFilename = "filename"
	MetaFiletype = "filetype"
)

// Metadata keys reserved for the finalization outcome
const (
	MetaProcessingStatus      = "processing_status"
	MetaProcessingError       = "processing_error"
	MetaProcessingCompletedAt = "processing_completed_at"
)

// OutcomeMetaKeys are the keys only the finalization hook may write
var OutcomeMetaKeys = []string{MetaProcessingStatus, MetaProcessingError, MetaProcessingCompletedAt}

// Defaults
const (
	DefaultPath        = "/files"
	DefaultStatusPath  = "/status"
	DefaultContentType = "text/csv"
	DefaultMaxSize     = 50 << 20 // 50 MiB
	DefaultChunkSize   = 5 << 20  // 5 MiB
)
