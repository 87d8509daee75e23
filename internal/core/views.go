package core

import (
	"time"

	"github.com/jo-hoe/imageroulette/internal/backend/database"
	"github.com/jo-hoe/imageroulette/internal/backend/degradation"
	"github.com/jo-hoe/imageroulette/internal/backend/metadata"
	"github.com/jo-hoe/imageroulette/internal/backend/ranking"
)

type UploadResult struct {
	ID          string           `json:"id"`
	Tier        degradation.Tier `json:"tier"`
	Roll        float64          `json:"roll"`
	ContentType string           `json:"contentType"`
	Hidden      bool             `json:"hidden"`
	SizeBytes   int              `json:"sizeBytes"`
	Width       int              `json:"width,omitempty"`
	Height      int              `json:"height,omitempty"`
}

type ImageDetails struct {
	ID          string           `json:"id"`
	ContentType string           `json:"contentType"`
	Tier        degradation.Tier `json:"tier"`
	Roll        float64          `json:"roll"`
	Date        time.Time        `json:"date"`
	Hidden      bool             `json:"hidden"`
	Message     string           `json:"message,omitempty"`
	SizeBytes   int              `json:"sizeBytes"`
	Views       int64            `json:"views"`
}

// ImageSummary is one row of the gallery, leaderboard or admin listing
type ImageSummary struct {
	ID        string           `json:"id"`
	Tier      degradation.Tier `json:"tier"`
	Roll      float64          `json:"roll"`
	Date      time.Time        `json:"date"`
	Hidden    bool             `json:"hidden"`
	Views     int64            `json:"views"`
	Rank      int              `json:"rank,omitempty"`
	SizeBytes int              `json:"sizeBytes,omitempty"`
}

type GalleryPage struct {
	ranking.Page[ImageSummary]
	Stats ranking.Stats `json:"stats"`
}

type LeaderboardPage struct {
	Items []ImageSummary `json:"items"`
	Stats ranking.Stats  `json:"stats"`
}

type AdminPage struct {
	ranking.Page[ImageSummary]
	Stats ranking.Stats `json:"stats"`
}

// tiers shown to users are always derived from the roll
func newImageDetails(record *database.Record, views int64) *ImageDetails {
	meta := metadata.Decode(record.Meta)
	return &ImageDetails{
		ID:          record.ID,
		ContentType: meta.ContentType,
		Tier:        meta.DerivedTier(),
		Roll:        meta.Roll,
		Date:        meta.Date,
		Hidden:      meta.Hidden,
		Message:     meta.ShameMessage(),
		SizeBytes:   len(record.Data),
		Views:       views,
	}
}

func newImageSummary(entry ranking.Entry, views int64, rank int) ImageSummary {
	return ImageSummary{
		ID:     entry.ID,
		Tier:   entry.Meta.DerivedTier(),
		Roll:   entry.Meta.Roll,
		Date:   entry.Meta.Date,
		Hidden: entry.Meta.Hidden,
		Views:  views,
		Rank:   rank,
	}
}

// pageOf carries the paging info of p over to items
func pageOf[T any, U any](p ranking.Page[T], items []U) ranking.Page[U] {
	return ranking.Page[U]{
		Items:      items,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}
