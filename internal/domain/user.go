package domain

import "time"

type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleFrontDesk Role = "FRONTDESK"
	RoleGuest     Role = "Guest"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleFrontDesk, RoleGuest:
		return Role(s), true
	default:
		return "", false
	}
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone,omitempty"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal is the caller identity resolved once per request.
type Principal struct {
	UserID int64
	Roles  []Role
}

func (p Principal) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

func (p Principal) IsOwnerOf(c *Condo) bool {
	return c != nil && p.HasRole(RoleOwner) && c.OwnerID == p.UserID
}

func (p Principal) IsFrontDeskOf(c *Condo) bool {
	return c != nil && p.HasRole(RoleFrontDesk) && c.FrontDeskID == p.UserID
}

// Anonymous reports whether the request carried no identity.
func (p Principal) Anonymous() bool {
	return p.UserID == 0
}
