package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a circle of people who split expenses with each other.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewGroup(name string) Group {
	return Group{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
}

// Member is one person inside a group. At most one member per group carries
// IsSelf, marking the ledger owner. Identity and group binding are immutable
// after creation; only display metadata may change.
type Member struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"group_id"`
	DisplayName string    `json:"display_name"`
	Notes       string    `json:"notes,omitempty"`
	IsSelf      bool      `json:"is_self"`
	AvatarColor string    `json:"avatar_color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewMember(groupID, displayName string, isSelf bool) Member {
	return Member{
		ID:          uuid.New().String(),
		GroupID:     groupID,
		DisplayName: displayName,
		IsSelf:      isSelf,
		CreatedAt:   time.Now(),
	}
}
