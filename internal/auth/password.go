package auth

import "golang.org/x/crypto/bcrypt"

// Cost is exported so tests can lower it.
var Cost = bcrypt.DefaultCost

func HashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), Cost)
	return string(b), err
}

func VerifyPassword(plain, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
