// Package service contains the gallery's domain services: the album store,
// the cover blob stores and the change event bus.
package service

import (
	"errors"
	"time"

	"github.com/joeblew999/plat-gallery/internal/atlas"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrExists          = errors.New("already exists")
	ErrDraftID         = errors.New("the draft id cannot be stored")
	ErrInvalidLocation = errors.New("album needs a location other than 0,0")
	ErrInvalidKey      = errors.New("invalid cover key")
	ErrUnreadable      = errors.New("albums file is unreadable; refusing to overwrite it")
)

// Cover references the cover image of an album.
type Cover struct {
	ID      string    `json:"id" doc:"Cover ID"`
	Key     string    `json:"key" doc:"Cover blob key or image URL" example:"rome-2024.jpg"`
	AddedAt time.Time `json:"addedAt" doc:"When the cover was set"`
}

// ImageItem is one image inside an album.
type ImageItem struct {
	ID      string    `json:"id" doc:"Image ID"`
	Key     string    `json:"key" doc:"Image blob key or URL"`
	Caption string    `json:"caption,omitempty" doc:"Image caption"`
	AddedAt time.Time `json:"addedAt" doc:"When the image was added"`
}

// Album is a photo album pinned to the map.
type Album struct {
	ID          string      `json:"id" doc:"Album ID" example:"album_5f0c9d1e-0d0b-4f4c-9d7e-3c1f1d2a9b10"`
	Title       string      `json:"title" doc:"Album title" maxLength:"200" example:"Rome"`
	Description string      `json:"description,omitempty" doc:"Free text description"`
	Cover       *Cover      `json:"cover,omitempty" doc:"Cover image"`
	Images      []ImageItem `json:"images,omitempty" doc:"Images in the album"`
	Lat         float64     `json:"lat" doc:"Latitude" minimum:"-90" maximum:"90" example:"41.9"`
	Lng         float64     `json:"lng" doc:"Longitude" example:"12.5"`
	Country     string      `json:"country,omitempty" doc:"Country name used for low-zoom grouping" example:"Italy"`
	CreatedAt   time.Time   `json:"createdAt" doc:"Creation time"`
	UpdatedAt   time.Time   `json:"updatedAt" doc:"Last update time"`
}

// CoverKey returns the cover key, or "" without a cover.
func (a Album) CoverKey() string {
	if a.Cover == nil {
		return ""
	}
	return a.Cover.Key
}

// Position returns the album's coordinate.
func (a Album) Position() atlas.LatLng {
	return atlas.LatLng{Lat: a.Lat, Lng: a.Lng}
}

// Entity projects the album onto the map entity used for markers.
func (a Album) Entity() atlas.Entity {
	return atlas.Entity{
		ID:       a.ID,
		Lat:      a.Lat,
		Lng:      a.Lng,
		Title:    a.Title,
		CoverRef: a.CoverKey(),
		Country:  a.Country,
	}
}

// AlbumInput is the writable part of an album.
type AlbumInput struct {
	Title       string  `json:"title" doc:"Album title" maxLength:"200" example:"Rome"`
	Description string  `json:"description,omitempty" doc:"Free text description"`
	CoverKey    string  `json:"coverKey,omitempty" doc:"Cover blob key or image URL" example:"rome-2024.jpg"`
	Lat         float64 `json:"lat" doc:"Latitude" minimum:"-90" maximum:"90" example:"41.9"`
	Lng         float64 `json:"lng" doc:"Longitude" example:"12.5"`
	Country     string  `json:"country,omitempty" doc:"Country name" example:"Italy"`
}

// Apply copies the input fields onto a.
func (in AlbumInput) Apply(a Album) Album {
	a.Title = in.Title
	a.Description = in.Description
	a.Lat = in.Lat
	a.Lng = in.Lng
	a.Country = in.Country
	return setCover(a, in.CoverKey)
}

func setCover(a Album, key string) Album {
	switch {
	case key == "":
		a.Cover = nil
	case a.Cover == nil || a.Cover.Key != key:
		a.Cover = &Cover{Key: key}
	}
	return a
}
