package recommend

import (
	"fmt"
	"math"
	"sort"

	"gatherly/internal/models"
)

const (
	DefaultLimit = 12
	MaxLimit     = 50

	interestWeight = 0.5
	eventWeight    = 0.3
	locationWeight = 0.2
)

// Input is everything the scorer needs; it does no I/O.
type Input struct {
	Requester models.User
	Users     []models.User
	RSVPs     []models.RSVP
	// Edges touching the requester, in any status.
	Edges []models.ConnectionEdge
	Limit int
}

// Recommendation is one ranked candidate.
type Recommendation struct {
	User          models.UserSummary `json:"user"`
	Score         float64            `json:"score"`
	InterestScore float64            `json:"interest_score"`
	EventScore    float64            `json:"event_score"`
	LocationScore float64            `json:"location_score"`
	Reasons       []string           `json:"reasons"`
}

// ClampLimit bounds limit to [1, MaxLimit]. Zero means unset and gets
// DefaultLimit.
func ClampLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// GenderCompatible is false only when both genders are declared and differ.
func GenderCompatible(a, b models.Gender) bool {
	if !a.Known() || !b.Known() {
		return true
	}
	return a == b
}

// Score returns the top in.Limit candidates from Rank.
func Score(in Input) []Recommendation {
	ranked := Rank(in)
	if limit := ClampLimit(in.Limit); len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Rank scores every eligible candidate for in.Requester, best first.
// Candidates sharing any edge with the requester, or whose declared gender
// differs from the requester's, are skipped. Ties keep ascending user id order.
func Rank(in Input) []Recommendation {
	me := in.Requester

	attended := make(map[uint]Set)
	for _, r := range in.RSVPs {
		if r.EventID == "" {
			continue
		}
		s, ok := attended[r.UserID]
		if !ok {
			s = make(Set)
			attended[r.UserID] = s
		}
		s.Add(r.EventID)
	}

	excluded := map[uint]struct{}{me.ID: {}}
	for i := range in.Edges {
		if in.Edges[i].Involves(me.ID) {
			excluded[in.Edges[i].OtherParty(me.ID)] = struct{}{}
		}
	}

	myInterests := NormalizeSet(me.Interests)
	myEvents := attended[me.ID]

	candidates := make([]models.User, len(in.Users))
	copy(candidates, in.Users)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	scored := make([]Recommendation, 0, len(candidates))
	for i := range candidates {
		u := &candidates[i]
		if _, skip := excluded[u.ID]; skip {
			continue
		}
		if !GenderCompatible(me.Gender, u.Gender) {
			continue
		}

		interest := Jaccard(myInterests, NormalizeSet(u.Interests))
		event := Jaccard(myEvents, attended[u.ID])
		location := 0.0
		if SameArea(me.Location, u.Location) {
			location = 1
		}

		total := interestWeight*interest + eventWeight*event + locationWeight*location
		if total <= 0 {
			continue
		}

		scored = append(scored, Recommendation{
			User:          u.Summary(),
			Score:         total,
			InterestScore: interest,
			EventScore:    event,
			LocationScore: location,
			Reasons:       reasons(interest, event, location),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

func reasons(interest, event, location float64) []string {
	out := make([]string, 0, 3)
	if interest > 0 {
		out = append(out, fmt.Sprintf("%d%% shared interests", int(math.Round(interest*100))))
	}
	if event > 0 {
		out = append(out, fmt.Sprintf("%d%% event overlap", int(math.Round(event*100))))
	}
	if location > 0 {
		out = append(out, "near you")
	}
	return out
}
