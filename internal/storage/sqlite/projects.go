package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskboard/internal/models"
)

const projectColumns = `id, name, description, owner_id, created_at`

func scanProject(row interface{ Scan(...any) error }) (models.Project, error) {
	var (
		p    models.Project
		desc sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.OwnerID, &p.CreatedAt); err != nil {
		return models.Project{}, err
	}
	p.Description = stringPtr(desc)
	return p, nil
}

// ListProjects retrieves all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project owned by ownerID.
func (s *Store) CreateProject(ctx context.Context, ownerID string, in models.ProjectInput) (models.Project, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return models.Project{}, err
	}

	id := newID()
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects(id, name, description, owner_id, created_at) VALUES(?, ?, ?, ?, ?)`,
		id, in.Name, nullString(in.Description), ownerID, s.timestamp())
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	return s.getProject(ctx, s.db, id)
}

func (s *Store) getProject(ctx context.Context, q queryer, id string) (models.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject renames a project and replaces its description.
func (s *Store) UpdateProject(ctx context.Context, id string, in models.ProjectInput) (models.Project, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return models.Project{}, err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ? WHERE id = ?`, in.Name, nullString(in.Description), id)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := checkAffected(res, "project "+id, models.ErrNotFound); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its tasks.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return checkAffected(res, "project "+id, models.ErrNotFound)
}
