package models

import "strings"

// Field names used in validation errors.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

// Credentials is the email/password pair entered on the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the credentials before they are sent anywhere.
// It returns a field -> message map, or nil when the credentials are acceptable.
func (c Credentials) Validate() map[string]string {
	errs := make(map[string]string)

	switch {
	case c.Email == "":
		errs[FieldEmail] = "Email is required"
	case !strings.Contains(c.Email, "@"):
		errs[FieldEmail] = "Email must contain @"
	}

	if c.Password == "" {
		errs[FieldPassword] = "Password is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
