package auth

import "golang.org/x/crypto/bcrypt"

// Cost 12, two above the bcrypt default.
const bcryptCost = 12

// HashPassword returns the bcrypt hash to store in place of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ComparePassword reports a non-nil error when the password does not match
// the stored hash.
func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
