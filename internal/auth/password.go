// Package auth wraps the slow salted password hash used to gate room entry.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the protocol's salt-rounds default of 10.
const DefaultCost = 10

// Hasher is the hashing collaborator the session layer depends on. Tests
// swap in a fast fake.
type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. A mismatch is
	// (false, nil); an error means the hash itself is unusable.
	Verify(password, hash string) (bool, error)
}

type bcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h *bcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
