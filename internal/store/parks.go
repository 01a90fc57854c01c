package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/parkwait/internal/models"
)

// HistoryLookback is how far back baselines look.
const HistoryLookback = 60 * 24 * time.Hour

// WindowKey identifies one attraction's day/hour baseline window.
type WindowKey struct {
	AttractionID int64
	DayOfWeek    int
	HourOfDay    int
}

// HourBand returns the inclusive hour range matched for hour, clamped to a
// single day.
func HourBand(hour int) (lo, hi int) {
	return max(0, hour-1), min(23, hour+1)
}

func (k WindowKey) matches(local time.Time) bool {
	if models.DayOfWeek(local) != k.DayOfWeek {
		return false
	}
	lo, hi := HourBand(k.HourOfDay)
	h := local.Hour()
	return h >= lo && h <= hi
}

func (s *Store) ListParks(ctx context.Context) ([]models.Park, error) {
	return run(ctx, s, "list_parks", func(ctx context.Context) ([]models.Park, error) {
		rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM park ORDER BY name`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var parks []models.Park
		for rows.Next() {
			var p models.Park
			if err := rows.Scan(&p.ID, &p.Name); err != nil {
				return nil, err
			}
			parks = append(parks, p)
		}
		return parks, rows.Err()
	})
}

// ListRideAttractions returns the attractions in the named park whose type is
// not one of the excluded types. Attractions without a type are kept.
func (s *Store) ListRideAttractions(ctx context.Context, parkName string) ([]models.Attraction, error) {
	return run(ctx, s, "list_ride_attractions", func(ctx context.Context) ([]models.Attraction, error) {
		args := []any{parkName}
		typeFilter := ""
		if len(s.excludedTypes) > 0 {
			typeFilter = fmt.Sprintf("AND (t.type_name IS NULL OR t.type_name NOT IN (%s))", placeholders(len(s.excludedTypes)))
			for _, name := range s.excludedTypes {
				args = append(args, name)
			}
		}

		rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
			SELECT a.id, a.name, a.park_id, a.attraction_type_id
			FROM attraction a
			JOIN park p ON a.park_id = p.id
			LEFT JOIN attraction_type t ON a.attraction_type_id = t.id
			WHERE p.name = ?
			`+typeFilter+`
			ORDER BY a.name
		`), args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var attractions []models.Attraction
		for rows.Next() {
			var a models.Attraction
			if err := rows.Scan(&a.ID, &a.Name, &a.ParkID, &a.TypeID); err != nil {
				return nil, err
			}
			attractions = append(attractions, a)
		}
		return attractions, rows.Err()
	})
}

// LatestStatus returns the newest observation for each requested attraction.
// Attractions with no observations are absent. Rows come back ordered by
// stand-by ascending (nulls last), then attraction id.
func (s *Store) LatestStatus(ctx context.Context, attractionIDs []int64) ([]models.CurrentObservation, error) {
	if len(attractionIDs) == 0 {
		return nil, nil
	}
	return run(ctx, s, "latest_status", func(ctx context.Context) ([]models.CurrentObservation, error) {
		args := make([]any, len(attractionIDs))
		for i, id := range attractionIDs {
			args[i] = id
		}

		rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
			SELECT a.id, a.name, w.stand_by, w.timestamp, st.status
			FROM wait w
			JOIN attraction a ON w.attraction_id = a.id
			JOIN attraction_status st ON w.attraction_status_id = st.id
			JOIN (
				SELECT attraction_id, MAX(timestamp) AS latest_time
				FROM wait
				WHERE attraction_id IN (`+placeholders(len(args))+`)
				GROUP BY attraction_id
			) lt ON w.attraction_id = lt.attraction_id AND w.timestamp = lt.latest_time
			ORDER BY w.stand_by ASC NULLS LAST, a.id
		`), args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		seen := make(map[int64]bool)
		var current []models.CurrentObservation
		for rows.Next() {
			var obs models.CurrentObservation
			if err := rows.Scan(&obs.AttractionID, &obs.Name, &obs.StandBy, &obs.Timestamp, &obs.Status); err != nil {
				return nil, err
			}
			// Two rows can share the max timestamp; keep the first.
			if seen[obs.AttractionID] {
				continue
			}
			seen[obs.AttractionID] = true

			local := obs.Timestamp.In(s.loc)
			obs.Timestamp = local
			obs.DayOfWeek = models.DayOfWeek(local)
			obs.HourOfDay = local.Hour()
			current = append(current, obs)
		}
		return current, rows.Err()
	})
}

// HistoricalWindow returns Operating, non-null samples for the attraction
// after since whose local day matches dayOfWeek and whose local hour is within
// one of hourOfDay.
func (s *Store) HistoricalWindow(ctx context.Context, attractionID int64, since time.Time, dayOfWeek, hourOfDay int) ([]models.WaitSample, error) {
	key := WindowKey{AttractionID: attractionID, DayOfWeek: dayOfWeek, HourOfDay: hourOfDay}
	return run(ctx, s, "historical_window", func(ctx context.Context) ([]models.WaitSample, error) {
		rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
			SELECT w.attraction_id, w.stand_by, w.timestamp
			FROM wait w
			JOIN attraction_status st ON w.attraction_status_id = st.id
			WHERE w.attraction_id = ?
				AND w.timestamp > ?
				AND st.status = ?
				AND w.stand_by IS NOT NULL
			ORDER BY w.timestamp
		`), attractionID, since.UTC(), models.StatusOperating)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		byAttraction, err := s.collectSamples(rows, map[int64]WindowKey{attractionID: key})
		if err != nil {
			return nil, err
		}
		return byAttraction[attractionID], nil
	})
}

// HistoricalWindows is the batched form of HistoricalWindow: one query over
// every key's attraction, filtered per key. Attractions with no samples are
// absent from the map.
func (s *Store) HistoricalWindows(ctx context.Context, since time.Time, keys []WindowKey) (map[int64][]models.WaitSample, error) {
	if len(keys) == 0 {
		return map[int64][]models.WaitSample{}, nil
	}
	byID := make(map[int64]WindowKey, len(keys))
	args := make([]any, 0, len(keys)+2)
	for _, k := range keys {
		if _, dup := byID[k.AttractionID]; dup {
			continue
		}
		byID[k.AttractionID] = k
		args = append(args, k.AttractionID)
	}
	n := len(args)
	args = append(args, since.UTC(), models.StatusOperating)

	return run(ctx, s, "historical_windows", func(ctx context.Context) (map[int64][]models.WaitSample, error) {
		rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
			SELECT w.attraction_id, w.stand_by, w.timestamp
			FROM wait w
			JOIN attraction_status st ON w.attraction_status_id = st.id
			WHERE w.attraction_id IN (`+placeholders(n)+`)
				AND w.timestamp > ?
				AND st.status = ?
				AND w.stand_by IS NOT NULL
			ORDER BY w.attraction_id, w.timestamp
		`), args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return s.collectSamples(rows, byID)
	})
}

func (s *Store) collectSamples(rows *sql.Rows, keys map[int64]WindowKey) (map[int64][]models.WaitSample, error) {
	out := make(map[int64][]models.WaitSample)
	for rows.Next() {
		var (
			id      int64
			standBy sql.NullInt64
			ts      time.Time
		)
		if err := rows.Scan(&id, &standBy, &ts); err != nil {
			return nil, err
		}
		key, ok := keys[id]
		if !ok || !standBy.Valid {
			continue
		}
		local := ts.In(s.loc)
		if !key.matches(local) {
			continue
		}
		out[id] = append(out[id], models.WaitSample{StandBy: standBy.Int64, Timestamp: local})
	}
	return out, rows.Err()
}
