package domain

import (
	"time"

	"github.com/google/uuid"
)

// Member is a person attached to zero or more loans, and possibly the
// designated contact person for a group. The group back-reference is not
// ownership; detaching it never blocks member deletion.
type Member struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	Phone     string        `json:"phone" db:"phone"`
	GroupID   uuid.NullUUID `json:"group_id" db:"group_id"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// Group holds the subset of group fields the back office touches: the
// contact-person reference that deletion has to null out.
type Group struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	Name            string        `json:"name" db:"name"`
	ContactMemberID uuid.NullUUID `json:"contact_member_id" db:"contact_member_id"`
}

type RegisterMemberRequest struct {
	Name    string        `json:"name" validate:"required"`
	Phone   string        `json:"phone" validate:"required"`
	GroupID uuid.NullUUID `json:"group_id"`
}
