package validation

import "strings"

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Username string  `json:"username"`
	FullName *string `json:"fullName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate normalizes the email and username and checks every field.
func (r *RegisterRequest) Validate() error {
	var errs fieldErrors

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)

	if !ValidateEmail(r.Email) {
		errs.add("email", "Please provide a valid email")
	}
	if len(r.Password) < 6 {
		errs.add("password", "Password must be at least 6 characters long")
	}
	if msg := ValidateUsername(r.Username); msg != "" {
		errs.add("username", msg)
	}
	if r.FullName != nil {
		name := strings.TrimSpace(*r.FullName)
		if runeLen(name) > 100 {
			errs.add("fullName", "Full name cannot exceed 100 characters")
		}
		if name == "" {
			r.FullName = nil
		} else {
			r.FullName = &name
		}
	}

	return errs.err()
}

// Validate normalizes the email and requires a password.
func (r *LoginRequest) Validate() error {
	var errs fieldErrors

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	if !ValidateEmail(r.Email) {
		errs.add("email", "Please provide a valid email")
	}
	if r.Password == "" {
		errs.add("password", "Password is required")
	}

	return errs.err()
}
