package models

// UserCreate is the signup payload.
type UserCreate struct {
	Email              string  `json:"email" example:"john.doe@example.com"`
	Password           string  `json:"password" example:"SecureP@ss123"`
	Nickname           *string `json:"nickname,omitempty" example:"john_doe123"`
	FirstName          *string `json:"first_name,omitempty" example:"John"`
	LastName           *string `json:"last_name,omitempty" example:"Doe"`
	Bio                *string `json:"bio,omitempty" example:"Experienced software developer specializing in web applications."`
	ProfilePictureURL  *string `json:"profile_picture_url,omitempty" example:"https://example.com/profiles/john.jpg"`
	LinkedInProfileURL *string `json:"linkedin_profile_url,omitempty" example:"https://linkedin.com/in/johndoe"`
	GitHubProfileURL   *string `json:"github_profile_url,omitempty" example:"https://github.com/johndoe"`
}

// UserUpdate is a partial update; nil fields are left untouched.
// Role is honoured only on the administrative update route.
type UserUpdate struct {
	Email              *string `json:"email,omitempty" example:"john.doe@example.com"`
	Nickname           *string `json:"nickname,omitempty" example:"john_doe123"`
	FirstName          *string `json:"first_name,omitempty" example:"John"`
	LastName           *string `json:"last_name,omitempty" example:"Doe"`
	Bio                *string `json:"bio,omitempty" example:"Experienced software developer specializing in web applications."`
	ProfilePictureURL  *string `json:"profile_picture_url,omitempty" example:"https://example.com/profiles/john.jpg"`
	LinkedInProfileURL *string `json:"linkedin_profile_url,omitempty" example:"https://linkedin.com/in/johndoe"`
	GitHubProfileURL   *string `json:"github_profile_url,omitempty" example:"https://github.com/johndoe"`
	Role               *string `json:"role,omitempty" example:"MANAGER"`
}

// LoginRequest carries sign-in credentials.
type LoginRequest struct {
	Email    string `json:"email" example:"john.doe@example.com"`
	Password string `json:"password" example:"Secure*1234"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"bearer"`
	ExpiresIn    int    `json:"expires_in" example:"1800"` // seconds
}
