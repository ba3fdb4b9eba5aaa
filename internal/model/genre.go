package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Genre struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (g *Genre) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Characterization joins a movie and a genre. The movie's genre list is a
// derived view over these rows; deleting the movie removes the rows, the
// genre itself persists.
type Characterization struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MovieID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_characterizations_movie_genre" json:"movie_id"`
	Movie     Movie     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	GenreID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_characterizations_movie_genre" json:"genre_id"`
	Genre     Genre     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Characterization) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
