// Package users reads the profile and follow data owned by the account service.
package users

import (
	"context"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/database"
)

// Repository is a read-only view over users and follows.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a user directory.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// Exists reports whether a user with pid exists.
func (r *Repository) Exists(ctx context.Context, pid string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE pid = $1)`, pid).Scan(&ok)
	return ok, err
}

// GetOwnerInfos returns profiles keyed by pid; unknown pids are absent.
func (r *Repository) GetOwnerInfos(ctx context.Context, pids []string) (map[string]models.OwnerInfo, error) {
	out := make(map[string]models.OwnerInfo, len(pids))
	if len(pids) == 0 {
		return out, nil
	}
	const q = `SELECT pid, display_name, COALESCE(profile_image_url,'') FROM users WHERE pid = ANY($1)`
	rows, err := r.db.Query(ctx, q, pids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o models.OwnerInfo
		if err := rows.Scan(&o.PID, &o.DisplayName, &o.ProfileImageURL); err != nil {
			return nil, err
		}
		out[o.PID] = o
	}
	return out, rows.Err()
}

// FollowingSet returns which of pids the viewer follows.
func (r *Repository) FollowingSet(ctx context.Context, viewer string, pids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if viewer == "" || len(pids) == 0 {
		return out, nil
	}
	const q = `SELECT followee_pid FROM follows WHERE follower_pid = $1 AND followee_pid = ANY($2)`
	rows, err := r.db.Query(ctx, q, viewer, pids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		out[pid] = true
	}
	return out, rows.Err()
}
