package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrSessionNotFound indicates the named session file does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidSessionName indicates a name that is empty or resolves
	// outside the sessions directory.
	ErrInvalidSessionName = errors.New("invalid session name")
	// ErrNothingToSave indicates a save attempt against an empty knowledge
	// base.
	ErrNothingToSave = errors.New("nothing to save")
)

const sessionExt = ".pl"

// Store persists knowledge-base listings as plain Prolog files under a
// single root directory. Names are confined to that directory; the ".pl"
// extension is appended when missing.
type Store struct {
	root string
}

// SessionInfo describes one saved session file.
type SessionInfo struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewStore returns a store rooted at dir. The directory is created lazily on
// the first write.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the sessions directory.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a session name to its on-disk path. It rejects empty names
// and any name that would escape the sessions directory.
func (s *Store) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidSessionName)
	}
	if !strings.HasSuffix(name, sessionExt) {
		name += sessionExt
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q escapes the sessions directory", ErrInvalidSessionName, name)
	}

	path := filepath.Join(s.root, name)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the sessions directory", ErrInvalidSessionName, name)
	}
	return path, nil
}

// Write stores text under the session name, creating the sessions directory
// if needed and truncating any previous file. It returns the resolved path.
// A canceled context fails the write before the file is touched.
func (s *Store) Write(ctx context.Context, name, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.Resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create sessions directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write session %s: %w", name, err)
	}
	return path, nil
}

// Read returns the stored text and resolved path for the session name. A
// canceled context fails the read before the file is touched.
func (s *Store) Read(ctx context.Context, name string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	path, err := s.Resolve(name)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%w: %s", ErrSessionNotFound, name)
		}
		return "", "", fmt.Errorf("read session %s: %w", name, err)
	}
	return string(data), path, nil
}

// List enumerates the saved sessions in the root directory, sorted by name.
// A missing directory lists as empty rather than an error.
func (s *Store) List() ([]SessionInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionInfo{}, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	infos := make([]SessionInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != sessionExt {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, SessionInfo{
			Name:       strings.TrimSuffix(entry.Name(), sessionExt),
			Path:       filepath.Join(s.root, entry.Name()),
			SizeBytes:  fi.Size(),
			ModifiedAt: fi.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}
