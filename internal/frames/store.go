package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrFrameNotFound is returned when a record does not exist in the store.
var ErrFrameNotFound = errors.New("frame record not found")

// Store persists frame records keyed by frame name.
type Store interface {
	// Save writes or replaces the record for the named frame.
	Save(name string, frame Frame) error

	// Load reads the named frame's record.
	Load(name string) (Frame, error)

	// List returns all stored records sorted by frame name.
	List() ([]Frame, error)
}

// DirStore keeps one YAML sidecar per frame inside a directory.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed and returns a store over it.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) sidecarPath(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}

// Save writes the record atomically via a temp file rename.
func (s *DirStore) Save(name string, frame Frame) error {
	if name == "" {
		return fmt.Errorf("frame name is required")
	}
	if err := frame.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding frame record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp sidecar: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing sidecar: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.sidecarPath(name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publishing sidecar: %w", err)
	}
	return nil
}

// Load reads the named record, returning ErrFrameNotFound when absent.
func (s *DirStore) Load(name string) (Frame, error) {
	data, err := os.ReadFile(s.sidecarPath(name)) //nolint:gosec // G304: store-local path
	if err != nil {
		if os.IsNotExist(err) {
			return Frame{}, fmt.Errorf("%q: %w", name, ErrFrameNotFound)
		}
		return Frame{}, fmt.Errorf("reading sidecar: %w", err)
	}
	var frame Frame
	if err := yaml.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("decoding sidecar %q: %w", name, err)
	}
	return frame, nil
}

// List returns all records sorted by frame name, skipping temp files.
func (s *DirStore) List() ([]Frame, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading store directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)

	result := make([]Frame, 0, len(names))
	for _, name := range names {
		frame, err := s.Load(name)
		if err != nil {
			return nil, err
		}
		result = append(result, frame)
	}
	return result, nil
}

var _ Store = (*DirStore)(nil)
