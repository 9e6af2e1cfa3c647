// FILE: src/internal/auth/authenticator.go
package auth

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"segbridge/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Prevent unbounded map growth
const maxAuthTrackedIPs = 10000

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// Authenticator checks Authorization headers for the ingest source.
type Authenticator struct {
	config       *config.AuthConfig
	logger       *log.Logger
	basicUsers   map[string]string // username -> bcrypt hash
	bearerTokens map[string]bool
	jwtParser    *jwt.Parser
	jwtKey       []byte
	mu           sync.RWMutex

	// Brute-force protection
	ipAuthAttempts map[string]*ipAuthState
	authMu         sync.Mutex
	failureDelay   time.Duration

	done     chan struct{}
	stopOnce sync.Once

	successes atomic.Uint64
	failures  atomic.Uint64
	limited   atomic.Uint64
}

type ipAuthState struct {
	limiter      *rate.Limiter
	failCount    int
	lastAttempt  time.Time
	blockedUntil time.Time
}

// Principal identifies an authenticated caller.
type Principal struct {
	Username string
	Method   string // basic, bearer, jwt
}

// New creates an authenticator. It returns nil for type "none" or an empty
// config; a nil *Authenticator accepts every request.
func New(cfg *config.AuthConfig, logger *log.Logger) (*Authenticator, error) {
	if cfg == nil || cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}

	a := &Authenticator{
		config:         cfg,
		logger:         logger,
		basicUsers:     make(map[string]string),
		bearerTokens:   make(map[string]bool),
		ipAuthAttempts: make(map[string]*ipAuthState),
		failureDelay:   500 * time.Millisecond,
		done:           make(chan struct{}),
	}

	switch cfg.Type {
	case "basic":
		if cfg.Basic == nil {
			return nil, fmt.Errorf("basic auth config missing")
		}
		for _, user := range cfg.Basic.Users {
			a.basicUsers[user.Username] = user.PasswordHash
		}
		if cfg.Basic.UsersFile != "" {
			if err := a.loadUsersFile(cfg.Basic.UsersFile); err != nil {
				return nil, fmt.Errorf("failed to load users file: %w", err)
			}
		}

	case "bearer":
		if cfg.Bearer == nil {
			return nil, fmt.Errorf("bearer auth config missing")
		}
		for _, token := range cfg.Bearer.Tokens {
			a.bearerTokens[token] = true
		}
		if cfg.Bearer.JWT != nil && cfg.Bearer.JWT.SigningKey != "" {
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
				jwt.WithLeeway(5 * time.Second),
				jwt.WithExpirationRequired(),
			}
			if cfg.Bearer.JWT.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Bearer.JWT.Issuer))
			}
			if cfg.Bearer.JWT.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Bearer.JWT.Audience))
			}
			a.jwtParser = jwt.NewParser(opts...)
			a.jwtKey = []byte(cfg.Bearer.JWT.SigningKey)
		}

	default:
		return nil, fmt.Errorf("unsupported auth type: %s", cfg.Type)
	}

	go a.authAttemptCleanup()

	logger.Info("msg", "Authenticator initialized",
		"component", "auth",
		"type", cfg.Type)

	return a, nil
}

// Realm returns the basic auth realm for WWW-Authenticate.
func (a *Authenticator) Realm() string {
	if a == nil || a.config.Basic == nil || a.config.Basic.Realm == "" {
		return "segbridge"
	}
	return a.config.Basic.Realm
}

// Type returns the configured scheme, "none" for a nil authenticator.
func (a *Authenticator) Type() string {
	if a == nil {
		return "none"
	}
	return a.config.Type
}

// AuthenticateHTTP validates an Authorization header from remoteAddr,
// enforcing per-IP attempt limits.
func (a *Authenticator) AuthenticateHTTP(authHeader, remoteAddr string) (*Principal, error) {
	if a == nil {
		return &Principal{Method: "none"}, nil
	}

	if err := a.checkRateLimit(remoteAddr); err != nil {
		a.limited.Add(1)
		return nil, err
	}

	principal, err := a.AuthenticateHeader(authHeader)
	if err != nil {
		a.failures.Add(1)
		a.recordFailure(remoteAddr)
		if a.failureDelay > 0 {
			time.Sleep(a.failureDelay)
		}
		return nil, err
	}

	a.successes.Add(1)
	a.recordSuccess(remoteAddr)
	return principal, nil
}

// AuthenticateHeader validates an Authorization header without rate limiting.
func (a *Authenticator) AuthenticateHeader(authHeader string) (*Principal, error) {
	if a == nil {
		return &Principal{Method: "none"}, nil
	}

	switch a.config.Type {
	case "basic":
		return a.authenticateBasic(authHeader)
	case "bearer":
		return a.authenticateBearer(authHeader)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", a.config.Type)
	}
}

func (a *Authenticator) authenticateBasic(authHeader string) (*Principal, error) {
	encoded, ok := strings.CutPrefix(authHeader, "Basic ")
	if !ok {
		return nil, fmt.Errorf("invalid basic auth header")
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding")
	}

	username, password, ok := strings.Cut(string(payload), ":")
	if !ok {
		return nil, fmt.Errorf("invalid credentials format")
	}

	a.mu.RLock()
	expectedHash, exists := a.basicUsers[username]
	a.mu.RUnlock()

	if !exists {
		// Keep the timing of unknown users close to known ones
		bcrypt.CompareHashAndPassword([]byte("$2a$10$dummy.hash.to.prevent.timing.attacks"), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Principal{Username: username, Method: "basic"}, nil
}

func (a *Authenticator) authenticateBearer(authHeader string) (*Principal, error) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return nil, fmt.Errorf("invalid bearer auth header")
	}

	a.mu.RLock()
	isStatic := a.bearerTokens[token]
	a.mu.RUnlock()

	if isStatic {
		return &Principal{Method: "bearer"}, nil
	}

	if a.jwtParser == nil {
		return nil, ErrInvalidCredentials
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := a.jwtParser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.jwtKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("JWT validation failed: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid JWT token")
	}

	return &Principal{Username: claims.Subject, Method: "jwt"}, nil
}

// checkRateLimit allows 5 attempts per minute per IP with a burst of 3, and
// blocks an IP for 2^failCount minutes once it exceeds that.
func (a *Authenticator) checkRateLimit(remoteAddr string) error {
	ip := hostOf(remoteAddr)

	a.authMu.Lock()
	defer a.authMu.Unlock()

	state, exists := a.ipAuthAttempts[ip]
	now := time.Now()

	if !exists {
		if len(a.ipAuthAttempts) >= maxAuthTrackedIPs {
			a.evictOldest(now)
		}
		state = &ipAuthState{
			limiter:     rate.NewLimiter(rate.Every(12*time.Second), 3),
			lastAttempt: now,
		}
		a.ipAuthAttempts[ip] = state
	}

	if now.Before(state.blockedUntil) {
		remaining := state.blockedUntil.Sub(now)
		a.logger.Warn("msg", "IP temporarily blocked",
			"component", "auth",
			"ip", ip,
			"remaining", remaining)
		return fmt.Errorf("%w: blocked for %v", ErrRateLimited, remaining.Round(time.Second))
	}

	if !state.limiter.Allow() {
		state.failCount++
		if state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
			blockMinutes := 1 << min(state.failCount, 6)
			state.blockedUntil = now.Add(time.Duration(blockMinutes) * time.Minute)

			a.logger.Warn("msg", "Rate limit exceeded, blocking IP",
				"component", "auth",
				"ip", ip,
				"fail_count", state.failCount,
				"block_duration", time.Duration(blockMinutes)*time.Minute)
		}
		return ErrRateLimited
	}

	state.lastAttempt = now
	return nil
}

// evictOldest samples 20 entries and drops the least recently seen.
func (a *Authenticator) evictOldest(now time.Time) {
	const sampleSize = 20
	var oldestIP string
	oldestTime := now

	sampled := 0
	for ip, state := range a.ipAuthAttempts {
		if state.lastAttempt.Before(oldestTime) {
			oldestIP = ip
			oldestTime = state.lastAttempt
		}
		sampled++
		if sampled >= sampleSize {
			break
		}
	}

	if oldestIP != "" {
		delete(a.ipAuthAttempts, oldestIP)
		a.logger.Debug("msg", "Evicted old auth attempt state",
			"component", "auth",
			"evicted_ip", oldestIP,
			"last_seen", oldestTime)
	}
}

func (a *Authenticator) recordFailure(remoteAddr string) {
	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state, exists := a.ipAuthAttempts[hostOf(remoteAddr)]; exists {
		state.failCount++
		state.lastAttempt = time.Now()
	}
}

func (a *Authenticator) recordSuccess(remoteAddr string) {
	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state, exists := a.ipAuthAttempts[hostOf(remoteAddr)]; exists {
		state.failCount = 0
		state.blockedUntil = time.Time{}
	}
}

func (a *Authenticator) authAttemptCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.authMu.Lock()
			now := time.Now()
			for ip, state := range a.ipAuthAttempts {
				if now.Sub(state.lastAttempt) > time.Hour {
					delete(a.ipAuthAttempts, ip)
				}
			}
			a.authMu.Unlock()
		}
	}
}

// Close stops background cleanup. Safe to call more than once.
func (a *Authenticator) Close() {
	if a == nil {
		return
	}
	a.stopOnce.Do(func() { close(a.done) })
}

func (a *Authenticator) loadUsersFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open users file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		username, hash, ok := strings.Cut(line, ":")
		if !ok {
			a.logger.Warn("msg", "Skipping malformed line in users file",
				"component", "auth",
				"path", path,
				"line_number", lineNumber)
			continue
		}
		username, hash = strings.TrimSpace(username), strings.TrimSpace(hash)
		if username != "" && hash != "" {
			// File entries override inline users
			a.basicUsers[username] = hash
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading users file: %w", err)
	}

	a.logger.Info("msg", "Loaded users from file",
		"component", "auth",
		"path", path,
		"user_count", len(a.basicUsers))

	return nil
}

func hostOf(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}

// GetStats returns authentication statistics.
func (a *Authenticator) GetStats() map[string]any {
	if a == nil {
		return map[string]any{"enabled": false}
	}

	a.authMu.Lock()
	tracked := len(a.ipAuthAttempts)
	a.authMu.Unlock()

	a.mu.RLock()
	users := len(a.basicUsers)
	a.mu.RUnlock()

	return map[string]any{
		"enabled":       true,
		"type":          a.config.Type,
		"basic_users":   users,
		"static_tokens": len(a.bearerTokens),
		"jwt":           a.jwtParser != nil,
		"tracked_ips":   tracked,
		"successes":     a.successes.Load(),
		"failures":      a.failures.Load(),
		"rate_limited":  a.limited.Load(),
	}
}
