package service

import "zone_thermostat/internal/repository"

// Authorization issues and validates the bearer tokens guarding the
// command surface.
type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Service aggregates the non-control services. The control engine itself
// lives in internal/control and is wired into the handlers directly.
type Service struct {
	Authorization
}

// AuthConfig carries the token signing parameters from configuration.
type AuthConfig struct {
	SigningKey string
	TokenTTL   string // duration string, e.g. "1h"
}

func NewService(repos *repository.Repository, auth AuthConfig) *Service {
	return &Service{
		Authorization: NewAuthService(repos.Auth, auth),
	}
}
