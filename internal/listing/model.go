// Package listing provides the business listing document model and
// repositories for marketplace discovery.
package listing

import (
	"time"

	"github.com/confirmit/marketd/internal/geo"
)

// Marketplace status lifecycle values.
const (
	StatusActive         = "active"
	StatusExpired        = "expired"
	StatusPendingProfile = "pending_profile"
	StatusInactive       = "inactive"
)

// Defaults applied when a document is missing optional fields.
const (
	DefaultName       = "Unknown Business"
	DefaultTrustScore = 50
	DefaultTier       = 1
)

// TimeWindow is a single open/close window in 24-hour "HH:MM" form.
type TimeWindow struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// WeekHours maps lowercase English weekday names to that day's window.
// A missing or nil entry means the business is closed that day.
type WeekHours map[string]*TimeWindow

// Verification carries the platform verification state for a business.
type Verification struct {
	Verified bool `json:"verified"`
	Tier     int  `json:"tier,omitempty"` // 1-3; 0 means unset, read as 1
}

// Photos holds the visual assets for a profile.
type Photos struct {
	Primary string   `json:"primary"`
	Gallery []string `json:"gallery,omitempty"`
}

// Location is the marketplace-visible address of a business. Coordinates are
// optional; listings without them are ranked on trust alone and excluded by
// any radius filter.
type Location struct {
	Address     string     `json:"address,omitempty"`
	Area        string     `json:"area,omitempty"`
	City        string     `json:"city,omitempty"`
	State       string     `json:"state,omitempty"`
	Coordinates *geo.Point `json:"coordinates,omitempty"`
}

// Profile is the owner-editable marketplace profile.
type Profile struct {
	Tagline     string             `json:"tagline,omitempty"`
	Description string             `json:"description,omitempty"`
	Products    []string           `json:"products,omitempty"`
	Services    []string           `json:"services,omitempty"`
	Photos      Photos             `json:"photos,omitempty"`
	Hours       WeekHours          `json:"hours,omitempty"`
	Contact     map[string]*string `json:"contact,omitempty"`
	Location    Location           `json:"location,omitempty"`
	UpdatedAt   *time.Time         `json:"updatedAt,omitempty"`
}

// Status tracks the marketplace registration lifecycle.
type Status struct {
	Status        string     `json:"status"`
	RegisteredAt  *time.Time `json:"registeredAt,omitempty"`
	ExpiryDate    *time.Time `json:"expiryDate,omitempty"`
	LastRenewedAt *time.Time `json:"lastRenewedAt,omitempty"`
}

// Analytics holds the engagement counters for a listing. Counters are owned
// by the store and mutated only through atomic increments.
type Analytics struct {
	Views             int64      `json:"views"`
	WebsiteClicks     int64      `json:"websiteClicks"`
	DirectionRequests int64      `json:"directionRequests"`
	PhoneClicks       int64      `json:"phoneClicks"`
	WhatsappClicks    int64      `json:"whatsappClicks"`
	InstagramClicks   int64      `json:"instagramClicks"`
	LastViewedAt      *time.Time `json:"lastViewedAt,omitempty"`
}

// Marketplace groups the marketplace extension of a business record.
type Marketplace struct {
	Status    Status    `json:"status"`
	Profile   Profile   `json:"profile"`
	Analytics Analytics `json:"analytics"`
}

// Listing is a business's marketplace-visible record as read from the store.
// The search pipeline only reads a snapshot; derived fields (distance,
// relevance) live on search results and are never written back.
type Listing struct {
	ID           string       `json:"businessId"`
	OwnerID      string       `json:"ownerId,omitempty"`
	Name         string       `json:"name"`
	Category     string       `json:"category,omitempty"`
	TrustScore   *int         `json:"trustScore,omitempty"` // 0-100; nil reads as 50
	Rating       float64      `json:"rating"`
	ReviewCount  int          `json:"reviewCount"`
	Verification Verification `json:"verification"`
	Marketplace  Marketplace  `json:"marketplace"`
}

// DisplayName returns the listing name, defaulting when the record has none.
func (l *Listing) DisplayName() string {
	if l.Name == "" {
		return DefaultName
	}
	return l.Name
}

// Trust returns the trust score, defaulting to 50 when the record carries
// none. The returned value is in [0, 100].
func (l *Listing) Trust() int {
	if l.TrustScore == nil {
		return DefaultTrustScore
	}
	return *l.TrustScore
}

// Tier returns the verification tier, defaulting to 1 when unset.
func (l *Listing) Tier() int {
	if l.Verification.Tier == 0 {
		return DefaultTier
	}
	return l.Verification.Tier
}

// Coordinates returns the profile coordinates, or nil when the listing has
// no geocoded location.
func (l *Listing) Coordinates() *geo.Point {
	return l.Marketplace.Profile.Location.Coordinates
}

// Active reports whether the listing is live in the marketplace.
func (l *Listing) Active() bool {
	return l.Marketplace.Status.Status == StatusActive
}

// Clone returns a deep copy so repository callers can't mutate stored state.
func (l *Listing) Clone() *Listing {
	c := *l
	if l.TrustScore != nil {
		ts := *l.TrustScore
		c.TrustScore = &ts
	}
	c.Marketplace.Profile = cloneProfile(l.Marketplace.Profile)
	if l.Marketplace.Analytics.LastViewedAt != nil {
		at := *l.Marketplace.Analytics.LastViewedAt
		c.Marketplace.Analytics.LastViewedAt = &at
	}
	return &c
}

func cloneProfile(p Profile) Profile {
	c := p
	c.Products = append([]string(nil), p.Products...)
	c.Services = append([]string(nil), p.Services...)
	c.Photos.Gallery = append([]string(nil), p.Photos.Gallery...)
	if p.Hours != nil {
		c.Hours = make(WeekHours, len(p.Hours))
		for day, w := range p.Hours {
			if w == nil {
				c.Hours[day] = nil
				continue
			}
			window := *w
			c.Hours[day] = &window
		}
	}
	if p.Contact != nil {
		c.Contact = make(map[string]*string, len(p.Contact))
		for k, v := range p.Contact {
			if v == nil {
				c.Contact[k] = nil
				continue
			}
			s := *v
			c.Contact[k] = &s
		}
	}
	if p.Location.Coordinates != nil {
		pt := *p.Location.Coordinates
		c.Location.Coordinates = &pt
	}
	if p.UpdatedAt != nil {
		at := *p.UpdatedAt
		c.UpdatedAt = &at
	}
	return c
}
