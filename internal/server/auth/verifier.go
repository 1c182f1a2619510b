package auth

import "golang.org/x/crypto/bcrypt"

// CredentialVerifier abstracts the password check so alternate strategies
// can be plugged in without touching the registration/login flow.
type CredentialVerifier interface {
	// Hash derives a storable one-way hash from a plaintext password.
	Hash(password string) (string, error)
	// Compare reports whether password matches the stored hash.
	Compare(hash string, password string) bool
}

// BcryptVerifier is the default CredentialVerifier, backed by bcrypt with a
// configurable cost factor.
type BcryptVerifier struct {
	cost int
}

func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

func (v *BcryptVerifier) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (v *BcryptVerifier) Compare(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
