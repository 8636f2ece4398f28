// Package seed fills a development database with members, events, RSVPs and
// connections. It is intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gatherly/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers  int
	NumEvents int
	// Occurrences generated per event series.
	OccurrencesPerEvent int
	// Fixed faker seed; zero picks one from the clock.
	RandSeed int64
}

// Result reports how many rows each step created.
type Result struct {
	Users       []models.User
	Events      []models.Event
	Occurrences int
	RSVPs       int
	Connections int
}

var (
	interestPool = []string{
		"hiking", "climbing", "jazz", "folk music", "board games", "book club",
		"running", "cycling", "cooking", "photography", "theatre", "comedy",
		"volunteering", "gardening", "pottery", "quiz nights", "wild swimming",
		"film", "yoga", "languages", "dancing", "chess", "museums", "coding",
	}

	locations = []string{
		"Leeds", "Leeds City Centre", "Headingley", "Chapel Allerton", "Bradford",
		"Harrogate", "York", "Wakefield", "Otley", "Ilkley",
	}

	eventKinds = []string{
		"Walk", "Social", "Workshop", "Meetup", "Jam Session", "Quiz", "Supper Club", "Talk",
	}

	heardAbout = []string{"Friend", "Instagram", "Newsletter", "Search", "Poster", ""}
)

// Seeder writes generated rows through one gorm handle.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   time.Time
}

// NewSeeder creates a Seeder. randSeed zero seeds from the clock.
func NewSeeder(db *gorm.DB, randSeed int64) *Seeder {
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	return &Seeder{db: db, faker: gofakeit.New(randSeed), now: time.Now().UTC()}
}

// Run seeds users, events with occurrences, RSVPs and connection edges.
func (s *Seeder) Run(opts Options) (*Result, error) {
	log.Printf("🌱 Seeding %d users and %d events...", opts.NumUsers, opts.NumEvents)

	users, err := s.SeedUsers(opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d users created", len(users))

	per := opts.OccurrencesPerEvent
	if per <= 0 {
		per = 4
	}
	events, occurrences, err := s.SeedEvents(opts.NumEvents, per)
	if err != nil {
		return nil, fmt.Errorf("failed to create events: %w", err)
	}
	log.Printf("✓ %d events with %d occurrences created", len(events), len(occurrences))

	rsvps, err := s.SeedRSVPs(users, occurrences)
	if err != nil {
		return nil, fmt.Errorf("failed to create rsvps: %w", err)
	}
	log.Printf("✓ %d rsvps created", rsvps)

	conns, err := s.SeedConnections(users)
	if err != nil {
		return nil, fmt.Errorf("failed to create connections: %w", err)
	}
	log.Printf("✓ %d connections created", conns)

	return &Result{
		Users:       users,
		Events:      events,
		Occurrences: len(occurrences),
		RSVPs:       rsvps,
		Connections: conns,
	}, nil
}

// SeedUsers creates n member profiles with overlapping interests.
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		first, last := s.faker.FirstName(), s.faker.LastName()
		gender := models.GenderUnknown
		switch s.faker.Number(0, 2) {
		case 0:
			gender = models.GenderFemale
		case 1:
			gender = models.GenderMale
		}
		users = append(users, models.User{
			AuthSubject: "seed_" + s.faker.UUID(),
			Name:        first + " " + last,
			Email:       strings.ToLower(fmt.Sprintf("%s.%s.%d@example.com", first, last, i)),
			Type:        "member",
			Location:    s.pick(locations),
			Postcode:    fmt.Sprintf("LS%d %d%s", s.faker.Number(1, 29), s.faker.Number(1, 9), strings.ToUpper(s.faker.LetterN(2))),
			Interests:   s.sample(interestPool, s.faker.Number(2, 6)),
			Gender:      gender,
			HeardAbout:  s.pick(heardAbout),
		})
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := s.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SeedEvents creates n published weekly series, each with per occurrences
// starting within the next fortnight.
func (s *Seeder) SeedEvents(n, per int) ([]models.Event, []models.Occurrence, error) {
	events := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		start := s.now.Truncate(time.Hour).
			Add(time.Duration(s.faker.Number(1, 14)) * 24 * time.Hour).
			Add(time.Duration(s.faker.Number(9, 20)) * time.Hour)
		until := start.AddDate(0, 0, 7*(per-1))
		kind := s.pick(eventKinds)
		events = append(events, models.Event{
			PublicID:       fmt.Sprintf("EVT%04d", i+1),
			Title:          capitalize(s.faker.HipsterWord()) + " " + kind,
			StartAt:        &start,
			Duration:       fmt.Sprintf("%dh", s.faker.Number(1, 3)),
			Venue:          s.faker.Company(),
			CityRegion:     s.pick(locations),
			Description:    s.faker.Paragraph(1, 3, 12, " "),
			Summary:        s.faker.Sentence(10),
			ImageURL:       fmt.Sprintf("https://picsum.photos/seed/%s/800/450", s.faker.UUID()),
			Cost:           s.pick([]string{"Free", "£5", "£10", "Pay what you can"}),
			Audience:       []string{"Adults"},
			Category:       s.sample(interestPool, 2),
			Repeat:         "weekly",
			RepeatInterval: 1,
			ByDay:          []string{strings.ToUpper(start.Weekday().String()[:2])},
			RepeatUntil:    &until,
			ApprovalStatus: "Approved",
			Published:      s.faker.Number(0, 9) > 0,
			OrganiserName:  s.faker.Name(),
		})
	}
	if len(events) == 0 {
		return events, nil, nil
	}
	if err := s.db.CreateInBatches(&events, 100).Error; err != nil {
		return nil, nil, err
	}

	occurrences := make([]models.Occurrence, 0, n*per)
	for i := range events {
		e := &events[i]
		for w := 0; w < per; w++ {
			at := e.StartAt.AddDate(0, 0, 7*w)
			end := at.Add(2 * time.Hour)
			occurrences = append(occurrences, models.Occurrence{
				PublicID:      OccurrenceKey(e.PublicID, at),
				EventID:       &e.ID,
				EventPublicID: e.PublicID,
				StartAt:       at,
				EndAt:         &end,
				Status:        models.OccurrenceStatusScheduled,
				Venue:         e.Venue,
				CityRegion:    e.CityRegion,
			})
		}
	}
	if len(occurrences) > 0 {
		if err := s.db.CreateInBatches(&occurrences, 200).Error; err != nil {
			return nil, nil, err
		}
	}
	return events, occurrences, nil
}

// SeedRSVPs has each user answer a handful of occurrences.
func (s *Seeder) SeedRSVPs(users []models.User, occurrences []models.Occurrence) (int, error) {
	if len(users) == 0 || len(occurrences) == 0 {
		return 0, nil
	}
	statuses := []models.RSVPStatus{
		models.RSVPStatusGoing, models.RSVPStatusGoing, models.RSVPStatusInterested, models.RSVPStatusNotGoing,
	}

	rsvps := make([]models.RSVP, 0, len(users)*3)
	for _, u := range users {
		seen := make(map[string]struct{})
		for k := s.faker.Number(0, 5); k > 0; k-- {
			occ := occurrences[s.faker.Number(0, len(occurrences)-1)]
			if _, dup := seen[occ.PublicID]; dup {
				continue
			}
			seen[occ.PublicID] = struct{}{}
			rsvps = append(rsvps, models.RSVP{
				UserID:       u.ID,
				EventID:      occ.EventPublicID,
				OccurrenceID: occ.PublicID,
				Status:       statuses[s.faker.Number(0, len(statuses)-1)],
			})
		}
	}
	if len(rsvps) == 0 {
		return 0, nil
	}
	if err := s.db.CreateInBatches(&rsvps, 200).Error; err != nil {
		return 0, err
	}
	return len(rsvps), nil
}

// SeedConnections links each user to a couple of compatible neighbours in a
// mix of statuses. At most one edge is created per pair.
func (s *Seeder) SeedConnections(users []models.User) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	statuses := []models.ConnectionStatus{
		models.ConnectionStatusAccepted, models.ConnectionStatusAccepted,
		models.ConnectionStatusPending, models.ConnectionStatusDeclined,
	}

	pairs := make(map[string]struct{})
	edges := make([]models.ConnectionEdge, 0, len(users)*2)
	for i := range users {
		for k := 0; k < 2; k++ {
			j := s.faker.Number(0, len(users)-1)
			a, b := &users[i], &users[j]
			if a.ID == b.ID || (a.Gender.Known() && b.Gender.Known() && a.Gender != b.Gender) {
				continue
			}
			key := models.PairKey(a.ID, b.ID)
			if _, dup := pairs[key]; dup {
				continue
			}
			pairs[key] = struct{}{}
			edges = append(edges, models.ConnectionEdge{
				RequesterID: a.ID,
				RecipientID: b.ID,
				Status:      statuses[s.faker.Number(0, len(statuses)-1)],
			})
		}
	}
	if len(edges) == 0 {
		return 0, nil
	}
	if err := s.db.CreateInBatches(&edges, 200).Error; err != nil {
		return 0, err
	}
	return len(edges), nil
}

// ClearAll removes every seeded row, children first.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.RSVP{}, &models.ConnectionEdge{}, &models.Occurrence{}, &models.Event{}, &models.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// OccurrenceKey builds the EVENTID-YYYY-MM-DDTHH:MM key for one occurrence.
func OccurrenceKey(eventID string, at time.Time) string {
	return eventID + "-" + at.UTC().Format("2006-01-02T15:04")
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

func (s *Seeder) pick(from []string) string {
	return from[s.faker.Number(0, len(from)-1)]
}

// sample returns up to n distinct entries of from.
func (s *Seeder) sample(from []string, n int) []string {
	if n > len(from) {
		n = len(from)
	}
	idx := make([]int, len(from))
	for i := range idx {
		idx[i] = i
	}
	s.faker.ShuffleInts(idx)
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, from[i])
	}
	return out
}
