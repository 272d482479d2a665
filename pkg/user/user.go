package user

import "errors"

// ErrUserExists is returned by Add when the username is taken.
var ErrUserExists = errors.New("user already exists")

type User struct {
	ID       int64
	Username string
	// salt followed by the argon2 hash
	Password []byte
}
