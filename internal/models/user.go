package models

import "time"

// User represents a Telegram user's profile within a single chat. The same
// person has an independent record (and an independent family) per chat.
type User struct {
	ChatID           int64      `json:"chat_id" db:"chat_id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	Username         string     `json:"username,omitempty" db:"username"`
	Nickname         string     `json:"nickname" db:"nickname"`
	MarriageID       *int64     `json:"marriage_id,omitempty" db:"marriage_id"`
	ParentMarriageID *int64     `json:"parent_marriage_id,omitempty" db:"parent_marriage_id"`
	AdoptionDate     *time.Time `json:"adoption_date,omitempty" db:"adoption_date"`
}

// DisplayName returns the best display name for the user.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return ""
}

// IsMarried reports whether the user is currently a spouse in a marriage.
func (u *User) IsMarried() bool {
	return u.MarriageID != nil
}

// IsAdopted reports whether the user is currently a child of some marriage.
func (u *User) IsAdopted() bool {
	return u.ParentMarriageID != nil
}
