package auth

import "golang.org/x/crypto/bcrypt"

// HashPassport returns a salted one-way hash of the raw passport data.
func HashPassport(raw string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
}

// CheckPassport reports whether raw matches the stored hash. An empty or
// unset hash never matches.
func CheckPassport(hash []byte, raw string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(raw)) == nil
}
