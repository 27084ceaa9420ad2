// README: Activity store backed by PostgreSQL.
package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// InsertActivities writes all activities in one transaction and fills in
// their ids and creation times.
func (s *Store) InsertActivities(ctx context.Context, acts []Activity) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range acts {
		a := &acts[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO activities (
				room_id, name, location, price, start_time, end_time, rating, source, created_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at`,
			a.RoomID, a.Name, a.Location, a.Price, a.StartTime, a.EndTime, a.Rating, a.Source, a.CreatedBy,
		).Scan(&a.ID, &a.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert activity %q: %w", a.Name, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListActivities(ctx context.Context, roomID string) ([]Activity, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, room_id, name, location, price, start_time, end_time, rating, source, created_by, created_at
		FROM activities
		WHERE room_id = $1
		ORDER BY start_time, id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(
			&a.ID, &a.RoomID, &a.Name, &a.Location, &a.Price, &a.StartTime, &a.EndTime,
			&a.Rating, &a.Source, &a.CreatedBy, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteActivity(ctx context.Context, roomID string, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM activities WHERE id = $1 AND room_id = $2`, id, roomID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) InsertConstraint(ctx context.Context, c *Constraint) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO constraints (room_id, user_id, type, intensity, value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		c.RoomID, c.UserID, c.Type, c.Intensity, c.Value,
	).Scan(&c.ID)
}

func (s *Store) ListConstraints(ctx context.Context, roomID string) ([]Constraint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, room_id, user_id, type, intensity, value
		FROM constraints
		WHERE room_id = $1
		ORDER BY id`, roomID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Constraint])
}

func (s *Store) GetConstraint(ctx context.Context, roomID string, id int64) (Constraint, error) {
	var c Constraint
	err := s.db.QueryRow(ctx, `
		SELECT id, room_id, user_id, type, intensity, value
		FROM constraints
		WHERE id = $1 AND room_id = $2`, id, roomID,
	).Scan(&c.ID, &c.RoomID, &c.UserID, &c.Type, &c.Intensity, &c.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return Constraint{}, ErrNotFound
	}
	return c, err
}

func (s *Store) DeleteConstraint(ctx context.Context, roomID, userID string, id int64) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM constraints WHERE id = $1 AND room_id = $2 AND user_id = $3`, id, roomID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
