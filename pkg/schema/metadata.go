package schema

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ParseMetaHeader decodes an Upload-Metadata header: comma-separated pairs of
// a key and an optional base64-encoded value, separated by a space.
func ParseMetaHeader(value string) (UploadMeta, error) {
	meta := make(UploadMeta)
	if strings.TrimSpace(value) == "" {
		return meta, nil
	}
	for _, pair := range strings.Split(value, ",") {
		key, encoded, _ := strings.Cut(strings.TrimSpace(pair), " ")
		if key == "" {
			return nil, fmt.Errorf("empty key in %s", UploadMetaHeader)
		} else if strings.ContainsAny(key, " ,") {
			return nil, fmt.Errorf("invalid key %q in %s", key, UploadMetaHeader)
		} else if _, exists := meta[key]; exists {
			return nil, fmt.Errorf("duplicate key %q in %s", key, UploadMetaHeader)
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q in %s: %w", key, UploadMetaHeader, err)
		}
		meta[key] = string(decoded)
	}
	return meta, nil
}

// MetaHeader encodes metadata for the Upload-Metadata header, keys sorted
func (m UploadMeta) MetaHeader() string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		if m[key] == "" {
			pairs = append(pairs, key)
		} else {
			pairs = append(pairs, key+" "+base64.StdEncoding.EncodeToString([]byte(m[key])))
		}
	}
	return strings.Join(pairs, ",")
}
