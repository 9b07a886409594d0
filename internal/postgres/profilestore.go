package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/solacelabs/solaced/internal/task"
)

// ProfileStore implements task.ProfileStore on Postgres.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore wraps an open database handle.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get fetches the user's profile. A missing row yields an empty profile,
// not an error, matching the in-memory store.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*task.Profile, error) {
	var p task.Profile
	var categories pq.StringArray
	var weightsJSON, personaJSON []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, goal, categories, category_weights, persona
		FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Goal, &categories, &weightsJSON, &personaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return &task.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p.Categories = categories
	if len(weightsJSON) > 0 {
		if err := json.Unmarshal(weightsJSON, &p.CategoryWeights); err != nil {
			return nil, fmt.Errorf("decode category weights: %w", err)
		}
	}
	if len(personaJSON) > 0 {
		if err := json.Unmarshal(personaJSON, &p.Persona); err != nil {
			return nil, fmt.Errorf("decode persona: %w", err)
		}
	}
	return &p, nil
}

var _ task.ProfileStore = (*ProfileStore)(nil)

// Put upserts the profile.
func (s *ProfileStore) Put(ctx context.Context, p *task.Profile) error {
	weightsJSON, err := json.Marshal(p.CategoryWeights)
	if err != nil {
		return fmt.Errorf("encode category weights: %w", err)
	}
	personaJSON, err := json.Marshal(p.Persona)
	if err != nil {
		return fmt.Errorf("encode persona: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, goal, categories, category_weights, persona)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			goal = EXCLUDED.goal,
			categories = EXCLUDED.categories,
			category_weights = EXCLUDED.category_weights,
			persona = EXCLUDED.persona`,
		p.UserID, p.Goal, pq.Array(p.Categories), weightsJSON, personaJSON)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}
