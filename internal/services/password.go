package services

import (
	"fmt"

	"github.com/puttlab/backend/internal/utils"
)

// PasswordVerifier hashes and checks passwords. DummyHash returns a valid
// hash at the same cost that no real password matches, so a login for an
// unknown email costs the same as one with a wrong password.
type PasswordVerifier interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	DummyHash() string
}

type BcryptVerifier struct {
	cost      int
	dummyHash string
}

func NewBcryptVerifier(cost int) (*BcryptVerifier, error) {
	secret, err := utils.RandomHex(32)
	if err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}
	dummy, err := utils.HashPassword(secret, cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &BcryptVerifier{cost: cost, dummyHash: dummy}, nil
}

func (v *BcryptVerifier) Hash(password string) (string, error) {
	return utils.HashPassword(password, v.cost)
}

func (v *BcryptVerifier) Verify(password, hash string) bool {
	return utils.CheckPassword(password, hash)
}

func (v *BcryptVerifier) DummyHash() string {
	return v.dummyHash
}
