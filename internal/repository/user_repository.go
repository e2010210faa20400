package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/database"
)

// UserRepository reads portal profiles and manages their role assignments.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ListProfiles returns every profile with its roles attached.
func (r *UserRepository) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	const query = `SELECT id, email, full_name, created_at FROM profiles ORDER BY full_name ASC, email ASC`
	var profiles []models.UserProfile
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if len(profiles) == 0 {
		return profiles, nil
	}

	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	var rows []models.UserRole
	if err := r.db.SelectContext(ctx, &rows, `SELECT user_id, role FROM user_roles WHERE user_id = ANY($1) ORDER BY role ASC`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	byUser := make(map[string][]models.Role, len(profiles))
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row.Role)
	}
	for i := range profiles {
		profiles[i].Roles = byUser[profiles[i].ID]
		if profiles[i].Roles == nil {
			profiles[i].Roles = []models.Role{}
		}
	}
	return profiles, nil
}

// FindProfile returns one profile without roles.
func (r *UserRepository) FindProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	const query = `SELECT id, email, full_name, created_at FROM profiles WHERE id = $1`
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// RolesFor returns the roles assigned to a user.
func (r *UserRepository) RolesFor(ctx context.Context, userID string) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role ASC`, userID); err != nil {
		return nil, fmt.Errorf("list roles for user: %w", err)
	}
	return roles, nil
}

// ReplaceRoles sets the user's roles to exactly roles.
func (r *UserRepository) ReplaceRoles(ctx context.Context, userID string, roles []models.Role) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear user roles: %w", err)
		}
		for _, role := range roles {
			if _, err := tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, userID, role); err != nil {
				return fmt.Errorf("insert user role: %w", err)
			}
		}
		return nil
	})
}
