package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// FlopThreshold is the gross below which a released movie counts as a flop.
	FlopThreshold = 170_000_000
	// HitThreshold is the gross at or above which a released movie is a hit.
	HitThreshold = 300_000_000

	// CultClassicMinReviews and CultClassicMinStars exempt well-reviewed
	// movies from flop classification.
	CultClassicMinReviews = 50
	CultClassicMinStars   = 4.0
)

// Ratings are the accepted MPA ratings, in ascending order of restriction.
var Ratings = []string{"G", "PG", "PG-13", "R", "NC-17"}

func ValidRating(rating string) bool {
	for _, r := range Ratings {
		if r == rating {
			return true
		}
	}
	return false
}

type Movie struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Title             string             `gorm:"size:255;uniqueIndex;not null" json:"title"`
	Slug              string             `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description       string             `gorm:"type:text;not null" json:"description"`
	Director          string             `gorm:"size:255;not null" json:"director"`
	Duration          int                `gorm:"not null" json:"duration"`
	Rating            string             `gorm:"size:10;not null" json:"rating"`
	TotalGross        float64            `gorm:"not null;default:0" json:"total_gross"`
	ReleasedOn        time.Time          `gorm:"type:date;not null" json:"released_on"`
	MainImageURL      *string            `gorm:"type:text" json:"main_image_url,omitempty"`
	Reviews           []Review           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Characterizations []Characterization `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *Movie) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeSave recomputes the slug from the current title on every persist,
// overwriting whatever was stored before. The slug is the movie's external
// identifier; lookups never expose the uuid.
func (m *Movie) BeforeSave(tx *gorm.DB) error {
	m.Slug = Slugify(m.Title)
	return nil
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL-safe form of a title: lower-cased, with each run
// of spaces and punctuation collapsed into a single hyphen. "Catch-22"
// becomes "catch-22", not "catch22".
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugSeparators.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ReviewStats is the aggregate a movie's classification predicates run over.
type ReviewStats struct {
	Count        int64   `json:"count"`
	AverageStars float64 `json:"average_stars"`
}

// AverageStarsAsPercent maps the 0-5 star mean onto a 0-100 scale.
func (s ReviewStats) AverageStarsAsPercent() float64 {
	return s.AverageStars / 5.0 * 100
}

// Flop reports whether the movie grossed below the flop threshold and is not
// redeemed as a cult classic.
func (m *Movie) Flop(stats ReviewStats) bool {
	return m.TotalGross < FlopThreshold && !m.CultClassic(stats)
}

// CultClassic reports whether review volume and average rating exempt the
// movie from flop classification.
func (m *Movie) CultClassic(stats ReviewStats) bool {
	return stats.Count > CultClassicMinReviews && stats.AverageStars >= CultClassicMinStars
}

// Upcoming reports whether the movie releases after the given time.
func (m *Movie) Upcoming(now time.Time) bool {
	return m.ReleasedOn.After(now)
}
