package results

import (
	"context"
	"errors"

	"backend-routerace/internal/db"
	"backend-routerace/internal/race"

	"github.com/google/uuid"
)

// ErrNoStore is returned when the server runs without Postgres configured.
var ErrNoStore = errors.New("results: no store configured")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// RecordResult stores a finished race's final standings. Satisfies
// race.Recorder.
func (s *Service) RecordResult(ctx context.Context, res race.Result) error {
	if s.db == nil {
		return nil
	}

	resultID := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO race_results (id, race_id, reason, ended_at)
		VALUES ($1,$2,$3,$4)
	`, resultID, res.RaceID, string(res.Reason), res.EndedAt)
	if err != nil {
		return err
	}

	for _, p := range res.Placements {
		var finishedAt any
		if !p.FinishedAt.IsZero() {
			finishedAt = p.FinishedAt
		}
		_, err := s.db.Exec(ctx, `
			INSERT INTO race_placements (result_id, participant_id, rank, progress, finished_at)
			VALUES ($1,$2,$3,$4,$5)
		`, resultID, string(p.Participant), p.Rank, p.Progress, finishedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// ResultByRace returns the stored standings for a race.
func (s *Service) ResultByRace(ctx context.Context, raceID string) (Result, error) {
	if s.db == nil {
		return Result{}, ErrNoStore
	}

	var res Result
	row := s.db.QueryRow(ctx, `
		SELECT id, race_id, reason, ended_at
		FROM race_results WHERE race_id=$1
		ORDER BY ended_at DESC
		LIMIT 1
	`, raceID)
	if err := row.Scan(&res.ID, &res.RaceID, &res.Reason, &res.EndedAt); err != nil {
		return Result{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT participant_id, rank, progress, finished_at
		FROM race_placements WHERE result_id=$1
		ORDER BY rank
	`, res.ID)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var p Placement
		if err := rows.Scan(&p.ParticipantID, &p.Rank, &p.Progress, &p.FinishedAt); err != nil {
			return Result{}, err
		}
		res.Placements = append(res.Placements, p)
	}
	return res, nil
}
