// Package matching scores a CV against a job listing with the AI service, charging credits.
package matching

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/ai"
	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/joblistings"
	"github.com/kariyerai/backend/internal/models"
)

const OperationJobMatch = "job_match"

// Scorer rates a CV against a listing. *ai.Client satisfies it.
type Scorer interface {
	ScoreMatch(ctx context.Context, cv json.RawMessage, job *models.JobListing) (*ai.MatchScore, error)
}

// CVReader loads a CV owned by a user.
type CVReader interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*models.CV, error)
}

// JobReader loads a listing.
type JobReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.JobListing, error)
}

// Outcome is a persisted match plus the caller's remaining credits.
type Outcome struct {
	Match   *models.MatchResult `json:"match"`
	Balance int                 `json:"balance"`
}

// Service runs metered job matches.
type Service struct {
	results Store
	cvs     CVReader
	jobs    JobReader
	meter   *entitlements.Meter
	scorer  Scorer
	cost    int
	logger  *zap.Logger
}

// NewService creates a matching service. cost is the credits per match.
func NewService(results Store, cvs CVReader, jobs JobReader, meter *entitlements.Meter, scorer Scorer, cost int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cost < 1 {
		cost = 1
	}
	return &Service{results: results, cvs: cvs, jobs: jobs, meter: meter, scorer: scorer, cost: cost, logger: logger}
}

// Match scores cvID against jobID. The result is saved inside the metered work so a
// failed save charges nothing.
func (s *Service) Match(ctx context.Context, userID, cvID, jobID uuid.UUID, idempotencyKey string) (*Outcome, error) {
	cv, err := s.cvs.Get(ctx, userID, cvID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsActive {
		return nil, joblistings.ErrNotFound
	}

	var result *models.MatchResult
	op := entitlements.Operation{
		Name:      OperationJobMatch,
		UserID:    userID,
		Resource:  entitlements.Credits,
		Required:  s.cost,
		RequestID: entitlements.RequestID(userID, OperationJobMatch, idempotencyKey),
	}
	charge, err := s.meter.Run(ctx, op, func(ctx context.Context) (int, error) {
		score, err := s.scorer.ScoreMatch(ctx, cv.Data, job)
		if err != nil {
			return 0, err
		}
		result = &models.MatchResult{
			UserID:         userID,
			CVID:           cv.ID,
			JobID:          job.ID,
			Score:          score.Score,
			Feedback:       score.Feedback,
			Strengths:      score.Strengths,
			Gaps:           score.Gaps,
			CreditsCharged: s.cost,
		}
		if err := s.results.Create(ctx, result); err != nil {
			return 0, err
		}
		return s.cost, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("job match scored",
		zap.String("user_id", userID.String()),
		zap.String("cv_id", cvID.String()),
		zap.String("job_id", jobID.String()),
		zap.Int("score", result.Score),
		zap.Bool("settled", charge.Settled))
	return &Outcome{Match: result, Balance: charge.Balance}, nil
}

// List returns earlier results for a CV the caller owns.
func (s *Service) List(ctx context.Context, userID, cvID uuid.UUID) ([]models.MatchResult, error) {
	if _, err := s.cvs.Get(ctx, userID, cvID); err != nil {
		return nil, err
	}
	list, err := s.results.ListByCV(ctx, userID, cvID)
	if list == nil {
		list = []models.MatchResult{}
	}
	return list, err
}
