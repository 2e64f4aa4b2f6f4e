package validation

import (
	"strings"

	"github.com/ChrisAbdo/event-manager/internal/models"
)

// FieldError ties a rule violation to the request field that caused it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors collects every violation found in one request.
type Errors []*FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// Has reports whether a violation was recorded for field.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *Errors) add(field string, err error) {
	if err != nil {
		*e = append(*e, &FieldError{Field: field, Message: err.Error()})
	}
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// UserCreate validates a signup payload and normalizes it in place:
// email lower-cased, bio trimmed, blank optional fields dropped.
func UserCreate(in *models.UserCreate) error {
	var errs Errors

	email, err := NormalizeEmail(in.Email)
	errs.add("email", err)
	if err == nil {
		in.Email = email
	}
	errs.add("password", Password(in.Password))

	p := profileFields{
		Nickname:           &in.Nickname,
		Bio:                &in.Bio,
		ProfilePictureURL:  &in.ProfilePictureURL,
		LinkedInProfileURL: &in.LinkedInProfileURL,
		GitHubProfileURL:   &in.GitHubProfileURL,
	}
	in.FirstName = blankToNil(in.FirstName)
	in.LastName = blankToNil(in.LastName)
	p.validate(&errs)

	return errs.orNil()
}

// UserUpdate validates a partial update. At least one field must carry a
// value; blank strings count as absent.
func UserUpdate(in *models.UserUpdate) error {
	in.Email = blankToNil(in.Email)
	in.FirstName = blankToNil(in.FirstName)
	in.LastName = blankToNil(in.LastName)
	in.Role = blankToNil(in.Role)

	var errs Errors
	if in.Email != nil {
		email, err := NormalizeEmail(*in.Email)
		errs.add("email", err)
		if err == nil {
			in.Email = &email
		}
	}
	if in.Role != nil {
		role, err := models.ParseRole(*in.Role)
		errs.add("role", err)
		if err == nil {
			r := string(role)
			in.Role = &r
		}
	}

	p := profileFields{
		Nickname:           &in.Nickname,
		Bio:                &in.Bio,
		ProfilePictureURL:  &in.ProfilePictureURL,
		LinkedInProfileURL: &in.LinkedInProfileURL,
		GitHubProfileURL:   &in.GitHubProfileURL,
	}
	p.validate(&errs)

	if len(errs) == 0 && updateIsEmpty(in) {
		errs.add("body", ErrNoFieldsForUpdate)
	}
	return errs.orNil()
}

// Login normalizes the email of a sign-in request. Only emptiness is
// checked; a malformed address simply fails to match an account.
func Login(in *models.LoginRequest) error {
	var errs Errors
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		errs.add("email", ErrEmailRequired)
	}
	if in.Password == "" {
		errs.add("password", ErrPasswordRequired)
	}
	return errs.orNil()
}

// profileFields points at the optional fields shared by create and update.
type profileFields struct {
	Nickname           **string
	Bio                **string
	ProfilePictureURL  **string
	LinkedInProfileURL **string
	GitHubProfileURL   **string
}

func (p profileFields) validate(errs *Errors) {
	// a present nickname is always checked, blank included
	if *p.Nickname != nil {
		errs.add("nickname", Nickname(**p.Nickname))
	}
	if *p.Bio = blankToNil(*p.Bio); *p.Bio != nil {
		bio, err := Bio(**p.Bio)
		errs.add("bio", err)
		if err == nil {
			*p.Bio = &bio
		}
	}
	if *p.ProfilePictureURL = blankToNil(*p.ProfilePictureURL); *p.ProfilePictureURL != nil {
		errs.add("profile_picture_url", ProfilePictureURL(**p.ProfilePictureURL))
	}
	if *p.LinkedInProfileURL = blankToNil(*p.LinkedInProfileURL); *p.LinkedInProfileURL != nil {
		errs.add("linkedin_profile_url", URL(**p.LinkedInProfileURL))
	}
	if *p.GitHubProfileURL = blankToNil(*p.GitHubProfileURL); *p.GitHubProfileURL != nil {
		errs.add("github_profile_url", URL(**p.GitHubProfileURL))
	}
}

func updateIsEmpty(in *models.UserUpdate) bool {
	for _, f := range []*string{
		in.Email, in.Nickname, in.FirstName, in.LastName, in.Bio,
		in.ProfilePictureURL, in.LinkedInProfileURL, in.GitHubProfileURL, in.Role,
	} {
		if f != nil {
			return false
		}
	}
	return true
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
