package domain

import (
	"strings"
	"time"
)

type CondoStatus string

const (
	CondoAvailable   CondoStatus = "Available"
	CondoOccupied    CondoStatus = "Occupied"
	CondoMaintenance CondoStatus = "Maintenance"
	CondoUnavailable CondoStatus = "Unavailable"
)

func ParseCondoStatus(s string) (CondoStatus, bool) {
	switch CondoStatus(s) {
	case CondoAvailable, CondoOccupied, CondoMaintenance, CondoUnavailable:
		return CondoStatus(s), true
	default:
		return "", false
	}
}

// OwnerSettable reports whether an owner may set s directly.
// Occupied is derived from booking activity.
func (s CondoStatus) OwnerSettable() bool {
	return s == CondoAvailable || s == CondoMaintenance || s == CondoUnavailable
}

type Condo struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Location      string      `json:"location"`
	Description   string      `json:"description"`
	Amenities     string      `json:"amenities"`
	MaxGuests     int         `json:"maxGuests"`
	PricePerNight float64     `json:"pricePerNight"`
	ImageURL      string      `json:"imageUrl"`
	UniqueCode    string      `json:"uniqueCode"`
	BookingLink   string      `json:"bookingLink"`
	Status        CondoStatus `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
	LastUpdated   time.Time   `json:"lastUpdated"`
	OwnerID       int64       `json:"ownerId"`
	FrontDeskID   int64       `json:"frontDeskId"`
}

// NewCondo carries the fields of a condo and its front-desk login.
type NewCondo struct {
	Name              string
	Location          string
	Description       string
	Amenities         string
	MaxGuests         int
	PricePerNight     float64
	ImageURL          string
	FrontDeskUsername string
	FrontDeskPassword string
	FrontDeskFullName string
}

// CondoPatch is a partial update. Nil fields are left untouched.
type CondoPatch struct {
	Name          *string
	Location      *string
	Description   *string
	Amenities     *string
	MaxGuests     *int
	PricePerNight *float64
	ImageURL      *string
}

// Apply writes every supplied field that passes its check onto c and returns
// the names of fields that changed. Fields that fail are skipped.
func (p CondoPatch) Apply(c *Condo) []string {
	var changed []string
	setStr := func(name string, src *string, dst *string) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if v == "" {
			return
		}
		*dst = v
		changed = append(changed, name)
	}
	setStr("name", p.Name, &c.Name)
	setStr("location", p.Location, &c.Location)
	setStr("description", p.Description, &c.Description)
	setStr("amenities", p.Amenities, &c.Amenities)
	setStr("imageUrl", p.ImageURL, &c.ImageURL)

	if p.MaxGuests != nil && *p.MaxGuests > 0 {
		c.MaxGuests = *p.MaxGuests
		changed = append(changed, "maxGuests")
	}
	if p.PricePerNight != nil && *p.PricePerNight >= 0 {
		c.PricePerNight = *p.PricePerNight
		changed = append(changed, "pricePerNight")
	}
	return changed
}

// OccupancyRate is the percentage of condos currently Occupied; 0 with no condos.
func OccupancyRate(condos []Condo) float64 {
	if len(condos) == 0 {
		return 0
	}
	occupied := 0
	for _, c := range condos {
		if c.Status == CondoOccupied {
			occupied++
		}
	}
	return float64(occupied) / float64(len(condos)) * 100
}
