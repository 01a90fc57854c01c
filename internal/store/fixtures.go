package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lox/parkwait/internal/models"
)

// Fixture is a development data set: parks, their attractions, and wait rows.
// It is loaded by the seed command and by tests; the service itself only
// reads.
type Fixture struct {
	Parks []FixturePark `json:"parks" validate:"required,min=1,dive"`
}

type FixturePark struct {
	Name        string              `json:"name" validate:"required"`
	Attractions []FixtureAttraction `json:"attractions" validate:"dive"`
}

type FixtureAttraction struct {
	Name  string        `json:"name" validate:"required"`
	Type  string        `json:"type"`
	Waits []FixtureWait `json:"waits" validate:"dive"`
}

type FixtureWait struct {
	At      time.Time `json:"at"`
	StandBy *int64    `json:"stand_by" validate:"omitempty,min=-1"`
	Status  string    `json:"status" validate:"required"`
}

// LoadFixture decodes and validates a JSON fixture and inserts it. Parks,
// types and statuses are reused by name when they already exist.
func (s *Store) LoadFixture(ctx context.Context, r io.Reader) (int, error) {
	var f Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return 0, fmt.Errorf("decode fixture: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return 0, fmt.Errorf("validate fixture: %w", err)
	}

	waits := 0
	for _, p := range f.Parks {
		parkID, err := s.InsertPark(ctx, p.Name)
		if err != nil {
			return waits, err
		}
		for _, a := range p.Attractions {
			var typeID sql.NullInt64
			if a.Type != "" {
				id, err := s.InsertAttractionType(ctx, a.Type)
				if err != nil {
					return waits, err
				}
				typeID = sql.NullInt64{Int64: id, Valid: true}
			}
			attractionID, err := s.InsertAttraction(ctx, models.Attraction{Name: a.Name, ParkID: parkID, TypeID: typeID})
			if err != nil {
				return waits, err
			}
			for _, w := range a.Waits {
				if w.At.IsZero() {
					return waits, fmt.Errorf("validate fixture: %s/%s: wait without timestamp", p.Name, a.Name)
				}
				statusID, err := s.InsertStatus(ctx, w.Status)
				if err != nil {
					return waits, err
				}
				obs := models.WaitObservation{AttractionID: attractionID, Timestamp: w.At, StatusID: statusID}
				if w.StandBy != nil {
					obs.StandBy = sql.NullInt64{Int64: *w.StandBy, Valid: true}
				}
				if err := s.InsertWait(ctx, obs); err != nil {
					return waits, err
				}
				waits++
			}
		}
	}
	return waits, nil
}

// lookupOrInsert returns the id of the row in table whose column equals value,
// inserting it first when missing.
func (s *Store) lookupOrInsert(ctx context.Context, table, column, value string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", table, column)), value).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup %s %q: %w", table, value, err)
	}
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (?) RETURNING id", table, column)), value).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, value, err)
	}
	return id, nil
}

func (s *Store) InsertPark(ctx context.Context, name string) (int64, error) {
	return s.lookupOrInsert(ctx, "park", "name", name)
}

func (s *Store) InsertAttractionType(ctx context.Context, typeName string) (int64, error) {
	return s.lookupOrInsert(ctx, "attraction_type", "type_name", typeName)
}

func (s *Store) InsertStatus(ctx context.Context, status string) (int64, error) {
	return s.lookupOrInsert(ctx, "attraction_status", "status", status)
}

func (s *Store) InsertAttraction(ctx context.Context, a models.Attraction) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		INSERT INTO attraction (name, park_id, attraction_type_id)
		VALUES (?, ?, ?)
		RETURNING id
	`), a.Name, a.ParkID, a.TypeID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert attraction %q: %w", a.Name, err)
	}
	return id, nil
}

func (s *Store) InsertWait(ctx context.Context, w models.WaitObservation) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO wait (attraction_id, timestamp, stand_by, attraction_status_id)
		VALUES (?, ?, ?, ?)
	`), w.AttractionID, w.Timestamp.UTC(), w.StandBy, w.StatusID)
	if err != nil {
		return fmt.Errorf("insert wait for attraction %d: %w", w.AttractionID, err)
	}
	return nil
}
