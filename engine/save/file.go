package save

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileStore keeps one JSON file per slot in a directory.
type FileStore struct {
	dir string
	log logrus.FieldLogger

	mu sync.Mutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, log logrus.FieldLogger) (*FileStore, error) {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating save dir: %w", err)
	}
	return &FileStore{dir: dir, log: log.WithField("component", "saves")}, nil
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+".json")
}

// Put writes a slot, replacing any previous save in it.
func (s *FileStore) Put(ctx context.Context, e *Envelope) error {
	if err := ValidSlot(e.Slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicWrite(s.path(e.Slot), data, 0o644)
}

// atomicWrite writes data to a temp file then renames it over path.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Get reads a slot.
func (s *FileStore) Get(ctx context.Context, slot string) (*Envelope, error) {
	if err := ValidSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path(slot))
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return Decode(data)
}

// List reads every slot file. Unreadable files are skipped and logged.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.dir)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		e, err := s.Get(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.WithError(err).WithField("file", name).Warn("skipping unreadable save")
			continue
		}
		out = append(out, e.Info())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}

// Delete removes a slot.
func (s *FileStore) Delete(ctx context.Context, slot string) error {
	if err := ValidSlot(slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return err
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
