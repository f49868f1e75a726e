package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/models"
)

// ListProfiles returns every known profile ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, full_name, role FROM profiles ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Role); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// GetProfile fetches one profile.
func (s *Store) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	return s.getProfile(ctx, s.db, id)
}

func (s *Store) getProfile(ctx context.Context, q queryer, id string) (models.Profile, error) {
	var p models.Profile
	err := q.QueryRowContext(ctx, `SELECT id, full_name, role FROM profiles WHERE id = ?`, id).Scan(&p.ID, &p.FullName, &p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// EnsureProfile returns the profile for id, creating a member profile on first sight.
func (s *Store) EnsureProfile(ctx context.Context, id, fullName string) (models.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return models.Profile{}, fmt.Errorf("profile id must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles(id, full_name, role) VALUES(?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		id, strings.TrimSpace(fullName), models.RoleMember)
	if err != nil {
		return models.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetProfile(ctx, id)
}

// UpsertProfile creates or replaces a profile's name and role.
func (s *Store) UpsertProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	if !p.Role.Valid() {
		return models.Profile{}, &models.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", p.Role)}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles(id, full_name, role) VALUES(?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET full_name = excluded.full_name, role = excluded.role`,
		p.ID, strings.TrimSpace(p.FullName), p.Role)
	if err != nil {
		return models.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

// SetRole changes the authorization level of a profile.
func (s *Store) SetRole(ctx context.Context, id string, role models.Role) (models.Profile, error) {
	if !role.Valid() {
		return models.Profile{}, &models.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return models.Profile{}, fmt.Errorf("set role: %w", err)
	}
	if err := checkAffected(res, "profile "+id, models.ErrNotFound); err != nil {
		return models.Profile{}, err
	}
	return s.GetProfile(ctx, id)
}
