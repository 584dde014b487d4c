package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type Entry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

type Store[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	Delete(key string) error
}

// FileCache keeps one JSON file per key. Entries whose checksum does not
// match their data are treated as absent.
type FileCache[T any] struct {
	dir string
	mu  sync.Mutex
}

func NewFileCache[T any](dir string) *FileCache[T] {
	return &FileCache[T]{dir: dir}
}

func (fc *FileCache[T]) Dir() string {
	return fc.dir
}

// Key derives a stable file-safe key from params.
func Key(params ...interface{}) string {
	var keyData strings.Builder
	for _, param := range params {
		fmt.Fprintf(&keyData, "%v_", param)
	}
	h := sha1.New()
	h.Write([]byte(keyData.String()))
	return hex.EncodeToString(h.Sum(nil))
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.dir, key+".json")
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	entry, ok := fc.entry(key)
	return entry.Data, ok
}

func (fc *FileCache[T]) entry(key string) (Entry[T], bool) {
	var zero Entry[T]
	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, false
	}
	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false
	}
	if entry.Checksum != checksum(entry.Data) {
		return zero, false
	}
	return entry, true
}

func (fc *FileCache[T]) Set(key string, data T) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if err := os.MkdirAll(fc.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	entry := Entry[T]{
		Data:      data,
		CreatedAt: time.Now().UTC(),
		Checksum:  checksum(data),
	}
	jsonData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	cacheFile := fc.path(key)
	tmpFile := cacheFile + ".tmp"
	if err := os.WriteFile(tmpFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmpFile, cacheFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

func (fc *FileCache[T]) Delete(key string) error {
	err := os.Remove(fc.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns every valid entry, oldest first.
func (fc *FileCache[T]) List() ([]Entry[T], error) {
	files, err := os.ReadDir(fc.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Entry[T]
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		if e, ok := fc.entry(strings.TrimSuffix(name, ".json")); ok {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func checksum[T any](data T) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return hex.EncodeToString(hash[:])
}
