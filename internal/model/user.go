package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Admin        bool      `gorm:"not null;default:false" json:"admin"`
	Reviews      []Review  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BeforeSave lower-cases the username and email on every persist. The unique
// indexes on both columns are therefore case-insensitive in effect: two
// spellings of the same name collapse to one stored form.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Username = strings.ToLower(u.Username)
	u.Email = strings.ToLower(u.Email)
	return nil
}

// GravatarID returns the hex digest of the lower-cased email, the id gravatar
// expects in its avatar URLs. Not a security-sensitive hash; it only has to
// stay stable for a given email.
func (u *User) GravatarID() string {
	sum := md5.Sum([]byte(strings.ToLower(u.Email)))
	return hex.EncodeToString(sum[:])
}

// GravatarURL builds the avatar URL for the user at the given pixel size.
func (u *User) GravatarURL(size int) string {
	return fmt.Sprintf("https://secure.gravatar.com/avatar/%s?s=%d", u.GravatarID(), size)
}

// Is reports whether other is the same user.
func (u *User) Is(other *User) bool {
	return other != nil && u.ID == other.ID
}
