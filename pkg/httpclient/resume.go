package httpclient

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	// Packages
	lru "github.com/hashicorp/golang-lru/v2"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// ResumeStore remembers the upload id of a file fingerprint, so an
// interrupted upload can continue from the server offset
type ResumeStore interface {
	Get(fingerprint string) (string, bool)
	Set(fingerprint, id string)
	Delete(fingerprint string)
}

type memoryStore struct {
	cache *lru.Cache[string, string]
}

// FileResumeStore persists fingerprints as a JSON object in a file
type FileResumeStore struct {
	sync.Mutex
	path string
	ids  map[string]string
	err  error
}

var _ ResumeStore = (*memoryStore)(nil)
var _ ResumeStore = (*FileResumeStore)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewMemoryResumeStore returns a store which keeps the most recently used
// fingerprints in memory
func NewMemoryResumeStore(size int) (ResumeStore, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &memoryStore{cache: cache}, nil
}

// NewFileResumeStore returns a store backed by a JSON file, which is created
// on the first write
func NewFileResumeStore(path string) (*FileResumeStore, error) {
	self := &FileResumeStore{path: path, ids: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return self, nil
	} else if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &self.ids); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return self, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - MEMORY

func (m *memoryStore) Get(fingerprint string) (string, bool) {
	return m.cache.Get(fingerprint)
}

func (m *memoryStore) Set(fingerprint, id string) {
	m.cache.Add(fingerprint, id)
}

func (m *memoryStore) Delete(fingerprint string) {
	m.cache.Remove(fingerprint)
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - FILE

func (f *FileResumeStore) Get(fingerprint string) (string, bool) {
	f.Lock()
	defer f.Unlock()
	id, exists := f.ids[fingerprint]
	return id, exists
}

func (f *FileResumeStore) Set(fingerprint, id string) {
	f.Lock()
	defer f.Unlock()
	f.ids[fingerprint] = id
	f.err = f.save()
}

func (f *FileResumeStore) Delete(fingerprint string) {
	f.Lock()
	defer f.Unlock()
	if _, exists := f.ids[fingerprint]; !exists {
		return
	}
	delete(f.ids, fingerprint)
	f.err = f.save()
}

// Err returns the error of the last write, if any
func (f *FileResumeStore) Err() error {
	f.Lock()
	defer f.Unlock()
	return f.err
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// save replaces the file, so a reader never sees a partial document
func (f *FileResumeStore) save() error {
	data, err := json.MarshalIndent(f.ids, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close(), os.Remove(tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(err, os.Remove(tmp.Name()))
	}
	return os.Rename(tmp.Name(), f.path)
}

// fingerprint identifies a local file uploaded to an endpoint
func fingerprint(endpoint, name string, size int64, modtime time.Time) string {
	hash := sha256.New()
	for _, value := range []string{endpoint, name, strconv.FormatInt(size, 10), strconv.FormatInt(modtime.UnixNano(), 10)} {
		hash.Write([]byte(value))
		hash.Write([]byte{0})
	}
	return hex.EncodeToString(hash.Sum(nil))
}
