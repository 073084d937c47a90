package httpapi

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt refuses anything longer.
	maxPasswordBytes = 72
)

func validatePassword(pw string) string {
	if strings.TrimSpace(pw) == "" {
		return "password must not be empty"
	}
	if len(pw) < minPasswordLength {
		return "password must be at least 6 characters"
	}
	if len(pw) > maxPasswordBytes {
		return "password must be at most 72 bytes"
	}
	return ""
}

func (s *Server) hashPassword(pw string) (string, error) {
	cost := s.cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
