package service

import (
	"context"
	"time"

	"gatherly/internal/featureflags"
	"gatherly/internal/models"
	"gatherly/internal/observability"
	"gatherly/internal/recommend"
	"gatherly/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// RecommendationService loads scorer inputs from the store and ranks candidates.
type RecommendationService struct {
	userRepo repository.UserRepository
	rsvpRepo repository.RSVPRepository
	connRepo repository.ConnectionRepository
	flags    *featureflags.Manager
}

// NewRecommendationService returns a new RecommendationService. flags may be nil.
func NewRecommendationService(
	userRepo repository.UserRepository,
	rsvpRepo repository.RSVPRepository,
	connRepo repository.ConnectionRepository,
	flags *featureflags.Manager,
) *RecommendationService {
	return &RecommendationService{userRepo: userRepo, rsvpRepo: rsvpRepo, connRepo: connRepo, flags: flags}
}

// Recommend returns up to limit ranked candidates for the user with the given
// auth subject. A disabled rollout yields an empty list.
func (s *RecommendationService) Recommend(ctx context.Context, subject string, limit int) ([]recommend.Recommendation, error) {
	limit = recommend.ClampLimit(limit)
	span, ctx := observability.NewSpan(ctx, "recommendations.score", attribute.Int("limit", limit))
	defer span.End()
	start := time.Now()

	me, err := s.userRepo.GetByAuthSubject(ctx, subject)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			err = models.NewNotFoundError("Profile", subject)
		}
		span.SetError(err)
		return nil, err
	}
	if !s.flags.Allowed(featureflags.Recommendations, me.ID) {
		return []recommend.Recommendation{}, nil
	}

	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	rsvps, err := s.rsvpRepo.List(ctx, repository.RSVPFilter{})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	edges, err := s.connRepo.ListForUser(ctx, me.ID, nil)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	ranked := recommend.Rank(recommend.Input{
		Requester: *me,
		Users:     users,
		RSVPs:     rsvps,
		Edges:     edges,
	})
	observability.RecommendationCandidates.Observe(float64(len(ranked)))
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	observability.RecommendationLatency.Observe(time.Since(start).Seconds())
	span.AddAttributes(attribute.Int("candidates", len(ranked)))
	return ranked, nil
}
