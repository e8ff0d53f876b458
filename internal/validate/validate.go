// Package validate performs local, pre-network form validation. A failed
// validation blocks the mutation with field-scoped errors; nothing reaches
// the wire.
package validate

import (
	"net/url"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

// Func validates submitted form fields. isCreate distinguishes the stricter
// new-record rules (password required) from edits.
type Func func(fields url.Values, isCreate bool) map[string]string

// User validates user-directory forms: required name, well-formed email,
// and for new records a confirmed password of at least six characters.
func User(fields url.Values, isCreate bool) map[string]string {
	errs := make(map[string]string)

	name := strings.TrimSpace(fields.Get("name"))
	if isCreate && name == "" {
		errs["name"] = "Name is required"
	}
	if !isCreate && fields.Has("name") && name == "" {
		errs["name"] = "Name cannot be empty"
	}

	email := strings.TrimSpace(fields.Get("email"))
	if isCreate && email == "" {
		errs["email"] = "Email is required"
	} else if email != "" && !emailPattern.MatchString(email) {
		errs["email"] = "Enter a valid email address"
	}

	password := fields.Get("password")
	if isCreate && password == "" {
		errs["password"] = "Password is required"
	}
	if password != "" {
		if len(password) < MinPasswordLen {
			errs["password"] = "Password must be at least 6 characters"
		} else if confirm := fields.Get("password_confirm"); fields.Has("password_confirm") && confirm != password {
			errs["password_confirm"] = "Passwords do not match"
		}
	}

	return errs
}

// Ticket validates support-ticket forms: a summary and a requester name.
func Ticket(fields url.Values, isCreate bool) map[string]string {
	errs := make(map[string]string)

	if isCreate && strings.TrimSpace(fields.Get("summary")) == "" {
		errs["summary"] = "Summary is required"
	}
	if isCreate && strings.TrimSpace(fields.Get("full_name")) == "" {
		errs["full_name"] = "Name is required"
	}
	if email := strings.TrimSpace(fields.Get("email")); email != "" && !emailPattern.MatchString(email) {
		errs["email"] = "Enter a valid email address"
	}

	return errs
}
