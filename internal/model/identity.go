package model

import "github.com/google/uuid"

type Role string

const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleStaff     Role = "staff"
	RoleAdmin     Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleOrganizer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Identity is the verified caller handed to the core by the authentication layer.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanManageEvent reports whether the caller owns the event or is an admin.
func (i Identity) CanManageEvent(e *Event) bool {
	return i.IsAdmin() || (e != nil && e.OrganizerID == i.UserID)
}

// CanScan reports whether the caller may validate tickets for the event at the gate.
func (i Identity) CanScan(e *Event) bool {
	return i.Role == RoleStaff || i.CanManageEvent(e)
}
