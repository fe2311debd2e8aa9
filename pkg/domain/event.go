package domain

import (
	"math"
	"time"
)

type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	ArtistID    string     `json:"artist_id"`
	ArtistName  string     `json:"artist_name"`
	Venue       Venue      `json:"venue"`
	DateTime    time.Time  `json:"datetime"`
	DoorsTime   *time.Time `json:"doors_time,omitempty"`
	Genres      []string   `json:"genres,omitempty"`
	HasTickets  bool       `json:"has_tickets"`
	PriceRange  string     `json:"price_range,omitempty"`
	TicketLinks []string   `json:"ticket_links,omitempty"`
	Source      string     `json:"source,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Venue struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	City      string  `json:"city"`
	State     string  `json:"state,omitempty"`
	Zip       string  `json:"zip,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point carries usable coordinates. Imported
// venue rows with no coordinates come through as (0, 0), which is open
// ocean, so that pair is treated as absent alongside NaN and Inf.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) {
		return false
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude != 0 || p.Longitude != 0
}

// BoundingBox is a map viewport rectangle in degrees.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

func (b BoundingBox) Contains(p GeoPoint) bool {
	if !p.Valid() {
		return false
	}
	return p.Latitude <= b.North && p.Latitude >= b.South &&
		p.Longitude <= b.East && p.Longitude >= b.West
}

// Point returns the venue's coordinates and whether they are usable.
func (v Venue) Point() (GeoPoint, bool) {
	p := GeoPoint{Latitude: v.Latitude, Longitude: v.Longitude}
	return p, p.Valid()
}

// Point returns the event's geo point, taken from its venue.
func (e Event) Point() (GeoPoint, bool) {
	return e.Venue.Point()
}

type EventSearchResponse struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
}

type CityCount struct {
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	EventCount int    `json:"event_count"`
}
