package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fwojciec/docmirror"
	"gopkg.in/yaml.v3"
)

const (
	manifestFile = "manifest.json"
	pagesDir     = "pages"
	tempSuffix   = ".tmp"
)

var (
	_ docmirror.SnapshotStore  = (*SnapshotStore)(nil)
	_ docmirror.SnapshotWriter = (*SnapshotWriter)(nil)
)

// SnapshotStore keeps snapshots under dir/<source-id>/<version>. A version
// is staged in <version>.tmp and renamed into place on commit.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a SnapshotStore rooted at dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

func (s *SnapshotStore) sourceDir(sourceID string) string {
	return filepath.Join(s.dir, filepath.Base(sourceID))
}

func (s *SnapshotStore) versionDir(sourceID, version string) string {
	return filepath.Join(s.sourceDir(sourceID), filepath.Base(version))
}

// Begin starts staging version. A leftover staging directory from an
// interrupted run is discarded.
func (s *SnapshotStore) Begin(ctx context.Context, sourceID, version string) (docmirror.SnapshotWriter, error) {
	if sourceID == "" || version == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "source ID and version required")
	}
	final := s.versionDir(sourceID, version)
	if _, err := os.Stat(final); err == nil {
		return nil, docmirror.Errorf(docmirror.ECONFLICT, "snapshot %s/%s already exists", sourceID, version)
	}
	temp := final + tempSuffix
	if err := os.RemoveAll(temp); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(temp, pagesDir), 0o755); err != nil {
		return nil, err
	}
	return &SnapshotWriter{temp: temp, final: final}, nil
}

// Latest returns the manifest of the newest committed version.
func (s *SnapshotStore) Latest(ctx context.Context, sourceID string) (*docmirror.Manifest, error) {
	versions, err := s.Versions(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, docmirror.Errorf(docmirror.ENOTFOUND, "no snapshots for source %s", sourceID)
	}

	data, err := os.ReadFile(filepath.Join(s.versionDir(sourceID, versions[len(versions)-1]), manifestFile))
	if err != nil {
		return nil, err
	}
	var m docmirror.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, docmirror.Errorf(docmirror.EINTERNAL, "corrupt manifest for %s: %v", sourceID, err)
	}
	return &m, nil
}

// ReadDocument loads the document stored for url in version.
func (s *SnapshotStore) ReadDocument(ctx context.Context, sourceID, version, url string) (*docmirror.Document, error) {
	rel, err := URLToPath(url)
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "invalid document URL %q", url)
	}
	data, err := os.ReadFile(filepath.Join(s.versionDir(sourceID, version), pagesDir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, docmirror.Errorf(docmirror.ENOTFOUND, "document %s not found in %s/%s", url, sourceID, version)
	} else if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}

// Versions lists committed versions, oldest first. Versions sort
// chronologically because they are UTC timestamps.
func (s *SnapshotStore) Versions(ctx context.Context, sourceID string) ([]string, error) {
	entries, err := os.ReadDir(s.sourceDir(sourceID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasSuffix(e.Name(), tempSuffix) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.sourceDir(sourceID), e.Name(), manifestFile)); err != nil {
			continue
		}
		versions = append(versions, e.Name())
	}
	slices.Sort(versions)
	return versions, nil
}

// Prune removes all but the newest keep versions. keep < 1 keeps
// everything.
func (s *SnapshotStore) Prune(ctx context.Context, sourceID string, keep int) ([]string, error) {
	versions, err := s.Versions(ctx, sourceID)
	if err != nil || keep < 1 || len(versions) <= keep {
		return nil, err
	}

	stale := versions[:len(versions)-keep]
	for _, v := range stale {
		if err := os.RemoveAll(s.versionDir(sourceID, v)); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

// SnapshotWriter stages documents for one version.
type SnapshotWriter struct {
	temp  string
	final string
}

// Save writes doc as markdown with YAML frontmatter.
func (w *SnapshotWriter) Save(ctx context.Context, doc *docmirror.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	rel, err := URLToPath(doc.URL)
	if err != nil {
		return docmirror.Errorf(docmirror.EINVALID, "invalid document URL %q", doc.URL)
	}

	full := filepath.Join(w.temp, pagesDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	data, err := FormatDocument(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// Commit writes the manifest and moves the staged version into place.
func (w *SnapshotWriter) Commit(ctx context.Context, manifest *docmirror.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.temp, manifestFile), data, 0o644); err != nil {
		return err
	}
	return os.Rename(w.temp, w.final)
}

// Abort discards the staged version.
func (w *SnapshotWriter) Abort() error {
	return os.RemoveAll(w.temp)
}

var frontmatterDelim = []byte("---\n")

// FormatDocument renders doc as YAML frontmatter followed by its body.
func FormatDocument(doc *docmirror.Document) ([]byte, error) {
	meta, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.Write(frontmatterDelim)
	b.Write(meta)
	b.Write(frontmatterDelim)
	b.WriteString("\n")
	b.WriteString(doc.Body)
	b.WriteString("\n")
	return b.Bytes(), nil
}

// ParseDocument reads a document written by FormatDocument. Code blocks
// are derived from the body again.
func ParseDocument(data []byte) (*docmirror.Document, error) {
	rest, ok := bytes.CutPrefix(data, frontmatterDelim)
	if !ok {
		return nil, docmirror.Errorf(docmirror.EINTERNAL, "document has no frontmatter")
	}
	meta, body, ok := bytes.Cut(rest, append([]byte("\n"), frontmatterDelim...))
	if !ok {
		return nil, docmirror.Errorf(docmirror.EINTERNAL, "document frontmatter is not terminated")
	}

	var doc docmirror.Document
	if err := yaml.Unmarshal(meta, &doc); err != nil {
		return nil, docmirror.Errorf(docmirror.EINTERNAL, "invalid frontmatter: %v", err)
	}
	doc.Body = strings.TrimSuffix(strings.TrimPrefix(string(body), "\n"), "\n")
	doc.CodeBlocks = docmirror.ExtractCodeBlocks(doc.Body)
	return &doc, nil
}
