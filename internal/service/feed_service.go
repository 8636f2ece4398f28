package service

import (
	"context"
	"sort"

	"gatherly/internal/models"
	"gatherly/internal/repository"
)

// FeedService lists events the viewer's accepted connections plan to attend.
type FeedService struct {
	connRepo  repository.ConnectionRepository
	rsvpRepo  repository.RSVPRepository
	userRepo  repository.UserRepository
	eventRepo repository.EventRepository
}

// NewFeedService returns a new FeedService.
func NewFeedService(
	connRepo repository.ConnectionRepository,
	rsvpRepo repository.RSVPRepository,
	userRepo repository.UserRepository,
	eventRepo repository.EventRepository,
) *FeedService {
	return &FeedService{connRepo: connRepo, rsvpRepo: rsvpRepo, userRepo: userRepo, eventRepo: eventRepo}
}

// Feed groups Going and Interested RSVPs of viewerID's accepted connections by
// published event, sorted by event start.
func (s *FeedService) Feed(ctx context.Context, viewerID uint) ([]models.FeedItem, error) {
	peerIDs, err := s.connRepo.ListAcceptedPeerIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(peerIDs) == 0 {
		return []models.FeedItem{}, nil
	}

	rsvps, err := s.rsvpRepo.List(ctx, repository.RSVPFilter{
		UserIDs:  peerIDs,
		Statuses: []models.RSVPStatus{models.RSVPStatusGoing, models.RSVPStatusInterested},
	})
	if err != nil {
		return nil, err
	}
	if len(rsvps) == 0 {
		return []models.FeedItem{}, nil
	}

	peers, err := s.userRepo.GetByIDs(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	peerByID := make(map[uint]models.UserSummary, len(peers))
	for i := range peers {
		peerByID[peers[i].ID] = peers[i].Summary()
	}

	eventIDs := make([]string, 0, len(rsvps))
	seenEvent := make(map[string]struct{}, len(rsvps))
	for _, r := range rsvps {
		if _, ok := seenEvent[r.EventID]; !ok {
			seenEvent[r.EventID] = struct{}{}
			eventIDs = append(eventIDs, r.EventID)
		}
	}
	events, err := s.eventRepo.GetByPublicIDs(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	items := make(map[string]*models.FeedItem, len(events))
	for i := range events {
		e := &events[i]
		if !e.Published {
			continue
		}
		items[e.PublicID] = &models.FeedItem{
			Event:           *e,
			GoingUsers:      []models.UserSummary{},
			InterestedUsers: []models.UserSummary{},
		}
	}

	// A peer counts once per event and status even with several occurrence RSVPs.
	type seenKey struct {
		event  string
		user   uint
		status models.RSVPStatus
	}
	seen := make(map[seenKey]struct{}, len(rsvps))
	for _, r := range rsvps {
		item, ok := items[r.EventID]
		if !ok {
			continue
		}
		key := seenKey{r.EventID, r.UserID, r.Status}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		summary, ok := peerByID[r.UserID]
		if !ok {
			summary = models.UserSummary{ID: r.UserID}
		}
		switch r.Status {
		case models.RSVPStatusGoing:
			item.GoingUsers = append(item.GoingUsers, summary)
			item.ConnectionsGoing++
		case models.RSVPStatusInterested:
			item.InterestedUsers = append(item.InterestedUsers, summary)
			item.ConnectionsInterested++
		}
	}

	feed := make([]models.FeedItem, 0, len(items))
	for _, id := range eventIDs {
		if item, ok := items[id]; ok {
			feed = append(feed, *item)
		}
	}
	sort.SliceStable(feed, func(i, j int) bool {
		a, b := feed[i].StartAt, feed[j].StartAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return feed, nil
}
