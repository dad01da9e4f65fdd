package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/google/uuid"
)

var _ docmirror.SourceService = (*SourceService)(nil)

// SourceService implements docmirror.SourceService using SQLite.
type SourceService struct {
	db *DB
}

// NewSourceService creates a new SourceService.
func NewSourceService(db *DB) *SourceService {
	return &SourceService{db: db}
}

const sourceColumns = `id, name, base_url, category, priority, policy, schema_name, render, status, disabled, created_at, updated_at`

// CreateSource stores a new source. An empty ID is generated and the base
// URL is stored in canonical form.
func (s *SourceService) CreateSource(ctx context.Context, source *docmirror.Source) error {
	if err := source.Validate(); err != nil {
		return err
	}
	baseURL, err := docmirror.CanonicalURL(source.BaseURL)
	if err != nil {
		return err
	}
	source.BaseURL = baseURL

	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	if source.Status == "" {
		source.Status = docmirror.SourceDiscovered
	}
	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now

	policy, err := json.Marshal(source.Policy)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sources (`+sourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, source.ID, source.Name, source.BaseURL, source.Category, source.Priority, string(policy),
		source.Schema, source.Render, string(source.Status), source.Disabled,
		formatTime(source.CreatedAt), formatTime(source.UpdatedAt))
	if isUniqueViolation(err) {
		return docmirror.Errorf(docmirror.ECONFLICT, "source %q or base URL %s already exists", source.Name, source.BaseURL)
	}
	return err
}

// FindSourceByID retrieves a source by ID.
func (s *SourceService) FindSourceByID(ctx context.Context, id string) (*docmirror.Source, error) {
	sources, err := s.FindSources(ctx, docmirror.SourceFilter{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, docmirror.Errorf(docmirror.ENOTFOUND, "source not found")
	}
	return sources[0], nil
}

// FindSources retrieves sources matching the filter, highest priority
// first.
func (s *SourceService) FindSources(ctx context.Context, filter docmirror.SourceFilter) ([]*docmirror.Source, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + sourceColumns + " FROM sources WHERE 1=1")
	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Name != nil {
		query.WriteString(" AND name = ?")
		args = append(args, *filter.Name)
	}
	if filter.Disabled != nil {
		query.WriteString(" AND disabled = ?")
		args = append(args, *filter.Disabled)
	}
	query.WriteString(" ORDER BY priority DESC, name ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*docmirror.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// UpdateSource applies upd to an existing source.
func (s *SourceService) UpdateSource(ctx context.Context, id string, upd docmirror.SourceUpdate) (*docmirror.Source, error) {
	source, err := s.FindSourceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		source.Name = *upd.Name
	}
	if upd.BaseURL != nil {
		source.BaseURL = *upd.BaseURL
	}
	if upd.Category != nil {
		source.Category = *upd.Category
	}
	if upd.Priority != nil {
		source.Priority = *upd.Priority
	}
	if upd.Policy != nil {
		source.Policy = *upd.Policy
	}
	if upd.Schema != nil {
		source.Schema = *upd.Schema
	}
	if upd.Render != nil {
		source.Render = *upd.Render
	}
	if upd.Status != nil {
		source.Status = *upd.Status
	}
	if upd.Disabled != nil {
		source.Disabled = *upd.Disabled
	}

	if err := source.Validate(); err != nil {
		return nil, err
	}
	if source.BaseURL, err = docmirror.CanonicalURL(source.BaseURL); err != nil {
		return nil, err
	}
	policy, err := json.Marshal(source.Policy)
	if err != nil {
		return nil, err
	}
	source.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE sources
		SET name = ?, base_url = ?, category = ?, priority = ?, policy = ?, schema_name = ?,
			render = ?, status = ?, disabled = ?, updated_at = ?
		WHERE id = ?
	`, source.Name, source.BaseURL, source.Category, source.Priority, string(policy), source.Schema,
		source.Render, string(source.Status), source.Disabled, formatTime(source.UpdatedAt), id)
	if isUniqueViolation(err) {
		return nil, docmirror.Errorf(docmirror.ECONFLICT, "name %q or base URL %s already used by another source", source.Name, source.BaseURL)
	} else if err != nil {
		return nil, err
	}
	return source, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (*docmirror.Source, error) {
	var (
		source               docmirror.Source
		policy, status       string
		createdAt, updatedAt string
	)
	if err := row.Scan(&source.ID, &source.Name, &source.BaseURL, &source.Category, &source.Priority,
		&policy, &source.Schema, &source.Render, &status, &source.Disabled,
		&createdAt, &updatedAt); err != nil {
		if isNoRows(err) {
			return nil, docmirror.Errorf(docmirror.ENOTFOUND, "source not found")
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(policy), &source.Policy); err != nil {
		return nil, err
	}
	source.Status = docmirror.SourceStatus(status)

	var err error
	if source.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if source.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &source, nil
}
