// FILE: src/internal/config/auth.go
package config

import (
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

// AuthConfig guards the HTTP ingest source.
type AuthConfig struct {
	// Authentication type: "none", "basic", "bearer"
	Type string `toml:"type"`

	Basic  *BasicAuthConfig  `toml:"basic"`
	Bearer *BearerAuthConfig `toml:"bearer"`
}

type BasicAuthConfig struct {
	// Static users
	Users []BasicAuthUser `toml:"users"`

	// External users file, one "username:bcrypt_hash" per line
	UsersFile string `toml:"users_file"`

	// Realm for WWW-Authenticate header
	Realm string `toml:"realm"`
}

type BasicAuthUser struct {
	Username string `toml:"username"`
	// Password hash (bcrypt)
	PasswordHash string `toml:"password_hash"`
}

type BearerAuthConfig struct {
	// Static tokens
	Tokens []string `toml:"tokens"`

	// JWT validation
	JWT *JWTConfig `toml:"jwt"`
}

type JWTConfig struct {
	// Shared HMAC signing key
	SigningKey string `toml:"signing_key"`

	// Expected issuer
	Issuer string `toml:"issuer"`

	// Expected audience
	Audience string `toml:"audience"`
}

func validateAuth(auth *AuthConfig) error {
	if auth == nil {
		return nil
	}

	switch auth.Type {
	case "", "none":
		return nil

	case "basic":
		if auth.Basic == nil {
			return fmt.Errorf("auth: basic auth type specified but config missing")
		}
		if len(auth.Basic.Users) == 0 && auth.Basic.UsersFile == "" {
			return fmt.Errorf("auth: basic auth requires at least one user or a users_file")
		}
		for i, user := range auth.Basic.Users {
			if err := lconfig.NonEmpty(user.Username); err != nil {
				return fmt.Errorf("auth: basic user[%d] missing username", i)
			}
			if err := lconfig.NonEmpty(user.PasswordHash); err != nil {
				return fmt.Errorf("auth: basic user[%d] missing password_hash", i)
			}
		}

	case "bearer":
		if auth.Bearer == nil {
			return fmt.Errorf("auth: bearer auth type specified but config missing")
		}
		hasJWT := auth.Bearer.JWT != nil && auth.Bearer.JWT.SigningKey != ""
		if len(auth.Bearer.Tokens) == 0 && !hasJWT {
			return fmt.Errorf("auth: bearer auth requires tokens or a jwt signing_key")
		}

	default:
		return fmt.Errorf("auth: invalid type: %s", auth.Type)
	}

	return nil
}
