package models

import "time"

const (
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
	RoleStudent = "student"
)

type User struct {
	ID       int      `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName string   `gorm:"size:255;not null" json:"full_name"`
	Email    string   `gorm:"size:255;not null;unique" json:"email"`
	Password string   `gorm:"not null" json:"-"`
	Role     string   `gorm:"size:20;not null;default:'student'" json:"role"`
	Papers   []string `gorm:"serializer:json" json:"papers"`
	IsActive bool     `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal is the authenticated caller, decoded from the request token and
// passed explicitly into the services that need it.
type Principal struct {
	ID     int
	Role   string
	Name   string
	Papers []string
}

func (p Principal) Enrolled(paper string) bool {
	for _, code := range p.Papers {
		if code == paper {
			return true
		}
	}
	return false
}
