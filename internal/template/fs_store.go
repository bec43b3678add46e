package template

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore persists each template as <dir>/<cluster_id>.json, the simple
// layout operators can inspect and hand-edit.
type FSStore struct {
	dir    string
	logger *slog.Logger
}

// NewFSStore creates the directory if needed.
func NewFSStore(dir string, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates dir %q: %w", dir, err)
	}
	return &FSStore{dir: dir, logger: logger}, nil
}

func (s *FSStore) path(clusterID string) string {
	return filepath.Join(s.dir, clusterID+".json")
}

// Save writes the template atomically via a temp file rename.
func (s *FSStore) Save(_ context.Context, t *Template) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+t.ClusterID+"-*.json")
	if err != nil {
		return fmt.Errorf("create temp template file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write template %s: %w", t.ClusterID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close template %s: %w", t.ClusterID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(t.ClusterID)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename template %s: %w", t.ClusterID, err)
	}
	s.logger.Debug("template saved", "cluster_id", t.ClusterID, "path", s.path(t.ClusterID))
	return nil
}

// Delete removes the template file; a missing file is fine.
func (s *FSStore) Delete(_ context.Context, clusterID string) error {
	if err := os.Remove(s.path(clusterID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove template %s: %w", clusterID, err)
	}
	return nil
}

// LoadAll reads every *.json in the directory. Files that fail schema or
// decode checks are returned as errors alongside the templates that loaded.
func (s *FSStore) LoadAll(_ context.Context) ([]*Template, []error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read templates dir %q: %w", s.dir, err)}
	}

	var loaded []*Template
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("read template %s: %w", name, err))
			continue
		}
		t, err := Decode(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("template %s: %w", name, err))
			continue
		}
		loaded = append(loaded, t)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ClusterID < loaded[j].ClusterID })
	return loaded, errs
}
