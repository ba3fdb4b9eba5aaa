package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Favourite joins a user and a movie. The pair is unique: a user either has
// favourited a movie or not, there is no stored intensity.
type Favourite struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_favourites_user_movie" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	MovieID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_favourites_user_movie" json:"movie_id"`
	Movie     Movie     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (f *Favourite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
