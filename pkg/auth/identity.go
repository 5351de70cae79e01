// Package auth holds the identity of the logged-in user.
package auth

// Identity supplies the current user id, if anyone is logged in.
type Identity interface {
	UserID() (string, bool)
}

// Static is a fixed Identity. The zero value is anonymous.
type Static string

// UserID returns the id, reporting false when it is empty.
func (s Static) UserID() (string, bool) {
	return string(s), s != ""
}
