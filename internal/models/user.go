package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	Nickname            string     `json:"nickname"`
	FirstName           *string    `json:"first_name,omitempty"`
	LastName            *string    `json:"last_name,omitempty"`
	Bio                 *string    `json:"bio,omitempty"`
	ProfilePictureURL   *string    `json:"profile_picture_url,omitempty"`
	LinkedInProfileURL  *string    `json:"linkedin_profile_url,omitempty"`
	GitHubProfileURL    *string    `json:"github_profile_url,omitempty"`
	Role                Role       `json:"role"`
	IsProfessional      bool       `json:"is_professional"`
	PasswordHash        string     `json:"-"` // don’t expose hash
	FailedLoginAttempts int        `json:"-"`
	IsLocked            bool       `json:"is_locked"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// UserPage is one page of a user listing.
type UserPage struct {
	Items []User `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
}
