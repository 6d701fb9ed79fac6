package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is a player's standing in a party.
type Role string

const (
	RoleNone   Role = ""
	RoleOwner  Role = "owner"
	RoleMember Role = "member"

	MaxNameLength = 32
)

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

type Party struct {
	bun.BaseModel `bun:"table:party,alias:p"`

	ID        int64     `bun:"party_id,pk,autoincrement"               json:"id"`
	OwnerID   uuid.UUID `bun:"party_owner_id,notnull,type:varchar(36)" json:"owner_id"`
	Name      string    `bun:"party_name,nullzero,type:varchar(32)"     json:"name,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Members []PartyMember `bun:"rel:has-many,join:party_id=party_id" json:"members,omitempty"`
}

type PartyMember struct {
	bun.BaseModel `bun:"table:party_member,alias:pm"`

	PartyID  int64     `bun:"party_id,notnull"                         json:"party_id"`
	MemberID uuid.UUID `bun:"party_member_id,notnull,type:varchar(36)" json:"member_id"`
	JoinedAt time.Time `bun:"joined_at,nullzero,notnull,default:current_timestamp" json:"joined_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
