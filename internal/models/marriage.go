package models

import "time"

// Marriage pairs exactly two users within a chat. Children attach to a
// marriage through their parent_marriage_id, never to an individual spouse.
type Marriage struct {
	ID     int64     `json:"id" db:"id"`
	ChatID int64     `json:"chat_id" db:"chat_id"`
	Date   time.Time `json:"date" db:"date"`
}

// MarriageInfo is a marriage together with its members and adopted children.
type MarriageInfo struct {
	ID           int64     `json:"id"`
	Date         time.Time `json:"date"`
	Participants []int64   `json:"participants"`
	ChildIDs     []int64   `json:"child_ids,omitempty"`
}

// HasParticipant reports whether userID is one of the two spouses.
func (m *MarriageInfo) HasParticipant(userID int64) bool {
	for _, id := range m.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// PartnerOf returns the other spouse for a member of the marriage.
func (m *MarriageInfo) PartnerOf(userID int64) (int64, bool) {
	if !m.HasParticipant(userID) {
		return 0, false
	}
	for _, id := range m.Participants {
		if id != userID {
			return id, true
		}
	}
	return 0, false
}

// MarriageResult is the outcome of a marriage creation attempt. When
// AlreadyMarried is non-empty the creation was refused and MarriageID is zero.
type MarriageResult struct {
	MarriageID     int64
	AlreadyMarried []int64
}

// OK reports whether the marriage was actually created.
func (r *MarriageResult) OK() bool {
	return r != nil && r.MarriageID != 0 && len(r.AlreadyMarried) == 0
}

// Dissolution describes the fallout of a dissolved marriage: who was in it
// and which children lost their parents. Children are unlinked, not deleted.
type Dissolution struct {
	MarriageID        int64
	ParticipantIDs    []int64
	AbandonedChildIDs []int64
}

// PartnerOf returns the surviving partner relative to the given member.
func (d *Dissolution) PartnerOf(userID int64) (int64, bool) {
	for _, id := range d.ParticipantIDs {
		if id != userID {
			return id, true
		}
	}
	return 0, false
}

// MarriageList is one page of a chat's marriages, oldest first.
type MarriageList struct {
	Items      []*MarriageInfo `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}

// HasNext reports whether a later page exists.
func (l *MarriageList) HasNext() bool { return l.Page < l.TotalPages }

// HasPrev reports whether an earlier page exists.
func (l *MarriageList) HasPrev() bool { return l.Page > 1 }
