// Package validation holds the format rules for user input: email,
// nickname, password and the optional profile fields.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxEmailLen      = 255
	maxEmailLocalLen = 64

	minNicknameLen = 3
	maxNicknameLen = 30

	minPasswordLen = 8
	maxPasswordLen = 100

	maxBioLen = 500

	// PasswordSpecialChars lists the characters that satisfy the special-character rule.
	PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`
)

var (
	emailLocalRe  = regexp.MustCompile(`^[a-z0-9!#$%&'*+/=?^_{|}~-]+(\.[a-z0-9!#$%&'*+/=?^_{|}~-]+)*$`)
	emailDomainRe = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)
	nicknameRe    = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	urlRe         = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)

	pictureExts = []string{".jpg", ".jpeg", ".png", ".gif"}
)

// Rule violations. The messages are returned to API clients verbatim.
var (
	ErrEmailRequired = errors.New("Email is required")
	ErrEmailInvalid  = errors.New("Invalid email format")

	ErrNicknameTooShort    = errors.New("Nickname must be at least 3 characters long")
	ErrNicknameTooLong     = errors.New("Nickname must be at most 30 characters long")
	ErrNicknameStart       = errors.New("Nickname must start with a letter or number")
	ErrNicknameConsecutive = errors.New("Nickname cannot contain consecutive hyphens or underscores")
	ErrNicknameCharset     = errors.New("Nickname can only contain letters, numbers, underscores, and hyphens")

	ErrPasswordRequired  = errors.New("Password is required")
	ErrPasswordTooShort  = errors.New("Password must be at least 8 characters long")
	ErrPasswordTooLong   = errors.New("Password must be at most 100 characters long")
	ErrPasswordNoUpper   = errors.New("Password must contain at least one uppercase letter")
	ErrPasswordNoLower   = errors.New("Password must contain at least one lowercase letter")
	ErrPasswordNoDigit   = errors.New("Password must contain at least one number")
	ErrPasswordNoSpecial = errors.New("Password must contain at least one special character")

	ErrBioTooLong = errors.New("Bio must be at most 500 characters long")

	ErrURLInvalid        = errors.New("Invalid URL format")
	ErrPictureURLSuffix  = errors.New("Profile picture URL must end with .jpg, .jpeg, .png, or .gif")
	ErrNoFieldsForUpdate = errors.New("At least one field must be provided for update")
)

// NormalizeEmail trims and lower-cases s and checks it is a usable address.
func NormalizeEmail(s string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(s))
	if email == "" {
		return "", ErrEmailRequired
	}
	if len(email) > maxEmailLen {
		return "", ErrEmailInvalid
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", ErrEmailInvalid
	}
	local, domain := email[:at], email[at+1:]
	if len(local) > maxEmailLocalLen || !emailLocalRe.MatchString(local) || !emailDomainRe.MatchString(domain) {
		return "", ErrEmailInvalid
	}
	return email, nil
}

// Nickname checks the public handle rules in a fixed order so the first
// violated rule is the one reported.
func Nickname(s string) error {
	n := utf8.RuneCountInString(s)
	switch {
	case n < minNicknameLen:
		return ErrNicknameTooShort
	case n > maxNicknameLen:
		return ErrNicknameTooLong
	}
	first, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		return ErrNicknameStart
	}
	if strings.Contains(s, "--") || strings.Contains(s, "__") {
		return ErrNicknameConsecutive
	}
	if !nicknameRe.MatchString(s) {
		return ErrNicknameCharset
	}
	return nil
}

// Password checks length and character-class composition.
func Password(s string) error {
	n := utf8.RuneCountInString(s)
	switch {
	case n < minPasswordLen:
		return ErrPasswordTooShort
	case n > maxPasswordLen:
		return ErrPasswordTooLong
	}

	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return ErrPasswordNoUpper
	case !lower:
		return ErrPasswordNoLower
	case !digit:
		return ErrPasswordNoDigit
	case !special:
		return ErrPasswordNoSpecial
	}
	return nil
}

// Bio enforces the length limit on the raw text and returns it trimmed.
func Bio(s string) (string, error) {
	if utf8.RuneCountInString(s) > maxBioLen {
		return "", ErrBioTooLong
	}
	return strings.TrimSpace(s), nil
}

// URL accepts absolute http and https links.
func URL(s string) error {
	if !urlRe.MatchString(s) {
		return ErrURLInvalid
	}
	return nil
}

// ProfilePictureURL is URL plus an image file suffix.
func ProfilePictureURL(s string) error {
	if err := URL(s); err != nil {
		return err
	}
	lower := strings.ToLower(s)
	for _, ext := range pictureExts {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	return ErrPictureURLSuffix
}
