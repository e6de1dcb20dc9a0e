package listing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no listing exists for the given ID.
var ErrNotFound = errors.New("listing not found")

// CounterField selects an analytics counter for atomic increments. The set
// is fixed at compile time; the store never takes free-form field paths.
type CounterField int

const (
	CounterViews CounterField = iota
	CounterWebsiteClicks
	CounterDirectionRequests
	CounterPhoneClicks
	CounterWhatsappClicks
	CounterInstagramClicks
)

// Column returns the listings table column backing the counter.
func (f CounterField) Column() string {
	switch f {
	case CounterViews:
		return "views"
	case CounterWebsiteClicks:
		return "website_clicks"
	case CounterDirectionRequests:
		return "direction_requests"
	case CounterPhoneClicks:
		return "phone_clicks"
	case CounterWhatsappClicks:
		return "whatsapp_clicks"
	case CounterInstagramClicks:
		return "instagram_clicks"
	default:
		return ""
	}
}

// apply adds delta to the matching counter on an analytics snapshot.
func (f CounterField) apply(a *Analytics, delta int64) {
	switch f {
	case CounterViews:
		a.Views += delta
	case CounterWebsiteClicks:
		a.WebsiteClicks += delta
	case CounterDirectionRequests:
		a.DirectionRequests += delta
	case CounterPhoneClicks:
		a.PhoneClicks += delta
	case CounterWhatsappClicks:
		a.WhatsappClicks += delta
	case CounterInstagramClicks:
		a.InstagramClicks += delta
	}
}

// ProfilePatch is a sparse profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Tagline     *string            `json:"tagline,omitempty"`
	Description *string            `json:"description,omitempty"`
	Products    []string           `json:"products,omitempty"`
	Services    []string           `json:"services,omitempty"`
	Photos      *Photos            `json:"photos,omitempty"`
	Hours       *WeekHours         `json:"hours,omitempty"`
	Contact     map[string]*string `json:"contact,omitempty"`
	Location    *Location          `json:"location,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Tagline == nil && p.Description == nil && p.Products == nil &&
		p.Services == nil && p.Photos == nil && p.Hours == nil &&
		p.Contact == nil && p.Location == nil
}

// applyTo merges the patch into a profile and stamps the update time.
func (p ProfilePatch) applyTo(profile *Profile, now time.Time) {
	if p.Tagline != nil {
		profile.Tagline = *p.Tagline
	}
	if p.Description != nil {
		profile.Description = *p.Description
	}
	if p.Products != nil {
		profile.Products = p.Products
	}
	if p.Services != nil {
		profile.Services = p.Services
	}
	if p.Photos != nil {
		profile.Photos = *p.Photos
	}
	if p.Hours != nil {
		profile.Hours = *p.Hours
	}
	if p.Contact != nil {
		profile.Contact = p.Contact
	}
	if p.Location != nil {
		profile.Location = *p.Location
	}
	profile.UpdatedAt = &now
}

// Repository is the store adapter the discovery engine depends on. Retrieval
// applies only coarse structural filters (status, optional city); all ranking
// happens in memory downstream. Counter increments must be atomic at the
// store level.
type Repository interface {
	// FetchActive returns all active listings, optionally narrowed to an
	// exact city match when city is non-empty.
	FetchActive(ctx context.Context, city string) ([]*Listing, error)

	// GetByID retrieves a single listing. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*Listing, error)

	// IncrementCounter atomically adds delta to one analytics counter and
	// touches lastViewedAt. Returns ErrNotFound when the listing is absent;
	// no mutation is performed in that case.
	IncrementCounter(ctx context.Context, id string, field CounterField, delta int64) error

	// UpdateProfile applies a sparse profile patch and stamps updatedAt.
	// Returns ErrNotFound when the listing is absent.
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) error
}

// InMemoryRepository is an in-memory Repository used for tests and local
// development. Thread-safe via RWMutex; all reads return deep copies.
type InMemoryRepository struct {
	mu       sync.RWMutex
	listings map[string]*Listing
	now      func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		listings: make(map[string]*Listing),
		now:      time.Now,
	}
}

// SetClock overrides the repository clock for tests.
func (r *InMemoryRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Put stores a listing, assigning an ID when it has none. Returns the ID.
func (r *InMemoryRepository) Put(l *Listing) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := l.Clone()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	r.listings[c.ID] = c
	return c.ID
}

// FetchActive returns all active listings, optionally narrowed by city.
func (r *InMemoryRepository) FetchActive(ctx context.Context, city string) ([]*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Listing
	for _, l := range r.listings {
		if !l.Active() {
			continue
		}
		if city != "" && l.Marketplace.Profile.Location.City != city {
			continue
		}
		out = append(out, l.Clone())
	}
	return out, nil
}

// GetByID retrieves a listing by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

// IncrementCounter adds delta to one analytics counter and touches
// lastViewedAt.
func (r *InMemoryRepository) IncrementCounter(ctx context.Context, id string, field CounterField, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[id]
	if !ok {
		return ErrNotFound
	}
	field.apply(&l.Marketplace.Analytics, delta)
	now := r.now()
	l.Marketplace.Analytics.LastViewedAt = &now
	return nil
}

// UpdateProfile applies a sparse profile patch.
func (r *InMemoryRepository) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[id]
	if !ok {
		return ErrNotFound
	}
	patch.applyTo(&l.Marketplace.Profile, r.now().UTC())
	return nil
}
