package service

import (
	"context"
	"strings"

	"gatherly/internal/models"
	"gatherly/internal/observability"
	"gatherly/internal/repository"
	"gatherly/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// RSVPService resolves RSVP targets and upserts attendance intents.
type RSVPService struct {
	rsvpRepo  repository.RSVPRepository
	eventRepo repository.EventRepository
	occRepo   repository.OccurrenceRepository
}

// NewRSVPService returns a new RSVPService.
func NewRSVPService(rsvpRepo repository.RSVPRepository, eventRepo repository.EventRepository, occRepo repository.OccurrenceRepository) *RSVPService {
	return &RSVPService{rsvpRepo: rsvpRepo, eventRepo: eventRepo, occRepo: occRepo}
}

// RSVPInput identifies the RSVP target. At least one of EventID and
// OccurrenceID must be set.
type RSVPInput struct {
	UserID       uint
	EventID      string
	OccurrenceID string
	Status       string
}

// Target is a resolved RSVP target.
type Target struct {
	EventID      string
	OccurrenceID string
}

// Create upserts an RSVP, defaulting the status to Going.
func (s *RSVPService) Create(ctx context.Context, in RSVPInput) (*models.RSVP, bool, error) {
	if strings.TrimSpace(in.Status) == "" {
		in.Status = string(models.RSVPStatusGoing)
	}
	return s.upsert(ctx, in)
}

// Update upserts an RSVP with an explicit status, creating the row when absent.
func (s *RSVPService) Update(ctx context.Context, in RSVPInput) (*models.RSVP, bool, error) {
	if strings.TrimSpace(in.Status) == "" {
		return nil, false, models.NewValidationError("status is required")
	}
	return s.upsert(ctx, in)
}

func (s *RSVPService) upsert(ctx context.Context, in RSVPInput) (*models.RSVP, bool, error) {
	span, ctx := observability.NewSpan(ctx, "rsvps.upsert", attribute.Int64("user_id", int64(in.UserID)))
	defer span.End()

	status, ok := models.ParseRSVPStatus(in.Status)
	if !ok {
		return nil, false, models.NewValidationError("status must be one of Going, Interested or Not Going")
	}
	if in.UserID == 0 {
		return nil, false, models.NewUnauthenticatedError("Authentication required")
	}

	target, err := s.ResolveTarget(ctx, in.EventID, in.OccurrenceID)
	if err != nil {
		span.SetError(err)
		return nil, false, err
	}

	rsvp := &models.RSVP{
		UserID:       in.UserID,
		EventID:      target.EventID,
		OccurrenceID: target.OccurrenceID,
		Status:       status,
	}
	created, err := s.rsvpRepo.Upsert(ctx, rsvp)
	if err != nil {
		span.SetError(err)
		observability.RSVPUpserts.WithLabelValues(string(status), "error").Inc()
		return nil, false, err
	}

	result := "updated"
	if created {
		result = "created"
	}
	observability.RSVPUpserts.WithLabelValues(string(status), result).Inc()
	span.AddAttributes(attribute.String("event_id", target.EventID), attribute.Bool("created", created))
	return rsvp, created, nil
}

// ResolveTarget finds the event (and occurrence) an RSVP applies to. The event
// id comes from the request, else the occurrence row, else the occurrence key
// prefix. The event must exist.
func (s *RSVPService) ResolveTarget(ctx context.Context, eventID, occurrenceID string) (Target, error) {
	eventID = strings.TrimSpace(eventID)
	occurrenceID = strings.TrimSpace(occurrenceID)
	if eventID == "" && occurrenceID == "" {
		return Target{}, models.NewValidationError("One of eventId or occurrenceId is required")
	}

	target := Target{EventID: eventID, OccurrenceID: occurrenceID}
	if occurrenceID != "" {
		occ, err := s.lookupOccurrence(ctx, occurrenceID)
		if err != nil {
			return Target{}, err
		}
		if occ != nil {
			target.OccurrenceID = occ.PublicID
			if target.EventID == "" {
				target.EventID = occ.EventPublicID
			}
			if target.EventID == "" && occ.EventID != nil {
				if event, err := s.eventRepo.GetByID(ctx, *occ.EventID); err == nil {
					target.EventID = event.PublicID
				} else if !models.IsCode(err, models.CodeNotFound) {
					return Target{}, err
				}
			}
		}
		if target.EventID == "" {
			derived, ok := validation.EventIDFromOccurrenceKey(occurrenceID)
			if !ok {
				return Target{}, models.NewValidationError("Could not infer event id from occurrence")
			}
			target.EventID = derived
		}
	}

	event, err := s.eventRepo.GetByPublicID(ctx, target.EventID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return Target{}, models.NewNotFoundError("Event", target.EventID)
		}
		return Target{}, err
	}
	target.EventID = event.PublicID
	return target, nil
}

// lookupOccurrence returns nil without error when no occurrence matches.
func (s *RSVPService) lookupOccurrence(ctx context.Context, id string) (*models.Occurrence, error) {
	occ, err := s.occRepo.GetByPublicID(ctx, id)
	if err == nil {
		return occ, nil
	}
	if !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}
	if n, ok := validation.NumericID(id); ok {
		occ, err = s.occRepo.GetByID(ctx, n)
		if err == nil {
			return occ, nil
		}
		if !models.IsCode(err, models.CodeNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// List returns RSVPs matching the filter.
func (s *RSVPService) List(ctx context.Context, filter repository.RSVPFilter) ([]models.RSVP, error) {
	return s.rsvpRepo.List(ctx, filter)
}
