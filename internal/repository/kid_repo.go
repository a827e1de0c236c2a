package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"kidtasks/internal/database"
	"kidtasks/internal/models"
)

// KidRepository handles database operations for kids
type KidRepository struct {
	db database.Querier
}

// NewKidRepository creates a new kid repository
func NewKidRepository(db database.Querier) *KidRepository {
	return &KidRepository{db: db}
}

const kidColumns = "id, name, color, photo_data_url"

// CreateKid inserts a kid, assigning an ID when it has none
func (r *KidRepository) CreateKid(ctx context.Context, kid *models.Kid) error {
	if kid.ID == "" {
		kid.ID = uuid.NewString()
	}
	query := "INSERT INTO kids (id, name, color, photo_data_url) VALUES (?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, kid.ID, kid.Name, kid.Color, nullString(kid.PhotoDataURL)); err != nil {
		return fmt.Errorf("failed to create kid: %w", err)
	}
	return nil
}

// GetKidByID retrieves a kid by ID
func (r *KidRepository) GetKidByID(ctx context.Context, kidID string) (*models.Kid, error) {
	query := "SELECT " + kidColumns + " FROM kids WHERE id = ?"
	kid, err := scanKid(r.db.QueryRowContext(ctx, query, kidID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

// ListKids retrieves all kids ordered by name
func (r *KidRepository) ListKids(ctx context.Context) ([]models.Kid, error) {
	query := "SELECT " + kidColumns + " FROM kids ORDER BY name ASC, id ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	defer rows.Close()

	kids := []models.Kid{}
	for rows.Next() {
		kid, err := scanKid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		kids = append(kids, *kid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kids: %w", err)
	}
	return kids, nil
}

// CountKids returns the number of kids
func (r *KidRepository) CountKids(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kids").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count kids: %w", err)
	}
	return n, nil
}

// UpdateKid applies patch to a kid. Returns nil when the kid does not exist.
func (r *KidRepository) UpdateKid(ctx context.Context, kidID string, patch models.KidPatch) (*models.Kid, error) {
	kid, err := r.GetKidByID(ctx, kidID)
	if err != nil || kid == nil {
		return nil, err
	}
	if patch.Name != nil {
		kid.Name = *patch.Name
	}
	if patch.Color != nil {
		kid.Color = *patch.Color
	}
	if patch.PhotoDataURL != nil {
		kid.PhotoDataURL = *patch.PhotoDataURL
	}

	query := "UPDATE kids SET name = ?, color = ?, photo_data_url = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, kid.Name, kid.Color, nullString(kid.PhotoDataURL), kidID); err != nil {
		return nil, fmt.Errorf("failed to update kid: %w", err)
	}
	return kid, nil
}

// DeleteKid deletes a kid; tasks and streak rows go with it.
// Reports whether a row was removed.
func (r *KidRepository) DeleteKid(ctx context.Context, kidID string) (bool, error) {
	// Explicit deletes keep MySQL tables without FK enforcement consistent too
	if _, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE kid_id = ?", kidID); err != nil {
		return false, fmt.Errorf("failed to delete kid tasks: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM streaks WHERE kid_id = ?", kidID); err != nil {
		return false, fmt.Errorf("failed to delete kid streak: %w", err)
	}
	result, err := r.db.ExecContext(ctx, "DELETE FROM kids WHERE id = ?", kidID)
	if err != nil {
		return false, fmt.Errorf("failed to delete kid: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete kid: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKid(row rowScanner) (*models.Kid, error) {
	var (
		kid   models.Kid
		photo sql.NullString
	)
	if err := row.Scan(&kid.ID, &kid.Name, &kid.Color, &photo); err != nil {
		return nil, err
	}
	kid.PhotoDataURL = photo.String
	return &kid, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
