// Package password wraps bcrypt hashing and verification of login
// credentials. bcrypt salts every hash itself, so two hashes of the same
// plaintext differ while both verify against it.
package password

import "golang.org/x/crypto/bcrypt"

const hashCost = 12

func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), hashCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether plaintext produced hashed. A malformed hash is
// treated as a failed match, never an error.
func Verify(plaintext string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
