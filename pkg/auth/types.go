package auth

import "time"

// Record is the persisted contents of auth.toml.
type Record struct {
	Version int         `toml:"version"`
	User    *UserRecord `toml:"user,omitempty"`
}

// UserRecord is the logged-in account.
type UserRecord struct {
	ID         string    `toml:"id"`
	Username   string    `toml:"username"`
	LoggedInAt time.Time `toml:"logged_in_at"`
}
