package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a login attempt does not match the
// configured admin account. The same error covers unknown usernames and bad
// passwords so responses do not reveal which part failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminCredentials holds the single configured admin account. The password is
// stored only as a bcrypt hash.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// Verify checks a login attempt against the configured account.
func (c AdminCredentials) Verify(username string, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	if username != c.Username {
		// Burn a comparison anyway so unknown usernames take as long as
		// known ones.
		_ = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for AdminCredentials.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
