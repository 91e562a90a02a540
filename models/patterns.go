package models

import "regexp"

var (
	UsernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	SlugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// ReservedUsername collides with the /users/me/ route.
const ReservedUsername = "me"
