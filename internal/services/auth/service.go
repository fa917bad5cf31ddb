package auth

import (
	"errors"
	"log"
	"time"

	"smartcoffee/internal/models"
	"smartcoffee/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long an admin token stays valid.
const TokenTTL = 8 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type Service interface {
	Login(password string) (string, error)
	ParseToken(token string) (*models.AdminClaims, error)
}

type service struct {
	passwordHash []byte
	jwtSecret    string
}

// NewService builds the admin gate. passwordHash is a bcrypt hash; when it is
// empty the plain password is hashed once here.
func NewService(passwordHash, plainPassword, jwtSecret string) (Service, error) {
	if passwordHash == "" {
		if plainPassword == "" {
			return nil, errors.New("admin password not configured")
		}
		hashed, err := HashPassword(plainPassword)
		if err != nil {
			return nil, err
		}
		passwordHash = hashed
	} else if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, errors.New("ADMIN_PASSWORD_HASH is not a bcrypt hash")
	}

	return &service{
		passwordHash: []byte(passwordHash),
		jwtSecret:    jwtSecret,
	}, nil
}

func (s *service) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		log.Println("Admin login failed: incorrect password")
		return "", ErrInvalidCredentials
	}

	token, err := utils.GenerateAdminToken(s.jwtSecret, TokenTTL)
	if err != nil {
		log.Println("Error generating token:", err)
		return "", errors.New("error generating token")
	}
	return token, nil
}

func (s *service) ParseToken(token string) (*models.AdminClaims, error) {
	claims, err := utils.ParseToken(s.jwtSecret, token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !claims.IsAdmin() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash stored in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.New("failed to hash password")
	}
	return string(hashed), nil
}
