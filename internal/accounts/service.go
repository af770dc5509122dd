// Package accounts implements registration, login and token refresh on top
// of the identity store, the attempt limiter and the token issuer.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/models"
	"github.com/carelink/carelink-be/internal/models/dto"
	"github.com/carelink/carelink-be/internal/ratelimit"
	"github.com/carelink/carelink-be/internal/storage"
	"github.com/carelink/carelink-be/internal/validation"
)

// Options tune the service. Zero values fall back to the package defaults.
type Options struct {
	Register   ratelimit.Policy
	Login      ratelimit.Policy
	Passwords  validation.PasswordPolicy
	BcryptCost int
}

// Service owns the account flows.
type Service struct {
	users   storage.UserStore
	tokens  *auth.TokenManager
	limiter *ratelimit.Limiter
	opts    Options
}

// NewService wires the account flows.
func NewService(users storage.UserStore, tokens *auth.TokenManager, limiter *ratelimit.Limiter, opts Options) *Service {
	if opts.Register.MaxAttempts == 0 {
		opts.Register = ratelimit.RegisterPolicy
	}
	if opts.Login.MaxAttempts == 0 {
		opts.Login = ratelimit.LoginPolicy
	}
	if opts.Passwords == nil {
		opts.Passwords = validation.DefaultPasswordPolicy{}
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, tokens: tokens, limiter: limiter, opts: opts}
}

// Register creates a user and returns it with a fresh token pair. Every
// attempt from client counts against the registration policy, accepted or
// not.
func (s *Service) Register(ctx context.Context, client string, req dto.RegisterRequest) (dto.RegisterResponse, error) {
	policy := s.opts.Register
	allowed, _, err := s.limiter.CheckAndIncrement(ctx, policy.Key(client), policy.MaxAttempts, policy.Window)
	if err != nil {
		log.Warn().Err(err).Str("client", client).Msg("register limiter unavailable")
	} else if !allowed {
		return dto.RegisterResponse{}, &apperr.RateLimitError{Operation: policy.Operation, RetryAfter: policy.Window}
	}

	reg, err := validation.Register(req, s.opts.Passwords)
	if err != nil {
		return dto.RegisterResponse{}, err
	}

	if _, err := s.users.FindByUsername(ctx, reg.Username); err == nil {
		return dto.RegisterResponse{}, usernameTaken()
	} else if !errors.Is(err, storage.ErrNotFound) {
		return dto.RegisterResponse{}, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.opts.BcryptCost)
	if err != nil {
		return dto.RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, models.User{
		Username:     reg.Username,
		Email:        reg.Email,
		Name:         reg.Name,
		PasswordHash: string(hash),
	})
	if err != nil {
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			if conflict.Field == storage.FieldEmail {
				return dto.RegisterResponse{}, apperr.InvalidAs(apperr.ErrEmailTaken, "email",
					"A user with that email already exists.")
			}
			return dto.RegisterResponse{}, usernameTaken()
		}
		return dto.RegisterResponse{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return dto.RegisterResponse{}, err
	}
	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return dto.RegisterResponse{
		User: dto.UserSummary{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Name:     user.Name,
		},
		Tokens: pair,
	}, nil
}

// Login exchanges credentials for a token pair. Failed attempts count
// against the login policy; a success clears the client's counter.
func (s *Service) Login(ctx context.Context, client string, req dto.LoginRequest) (auth.TokenPair, error) {
	policy := s.opts.Login
	key := policy.Key(client)
	allowed, _, err := s.limiter.Allowed(ctx, key, policy.MaxAttempts)
	if err != nil {
		log.Warn().Err(err).Str("client", client).Msg("login limiter unavailable")
	} else if !allowed {
		return auth.TokenPair{}, &apperr.RateLimitError{Operation: policy.Operation, RetryAfter: policy.Window}
	}

	var missing []error
	if strings.TrimSpace(req.Username) == "" {
		missing = append(missing, apperr.Invalid("username", "This field is required."))
	}
	if req.Password == "" {
		missing = append(missing, apperr.Invalid("password", "This field is required."))
	}
	if len(missing) > 0 {
		return auth.TokenPair{}, errors.Join(missing...)
	}

	user, err := s.VerifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			if _, incErr := s.limiter.Increment(ctx, key, policy.Window); incErr != nil {
				log.Warn().Err(incErr).Str("client", client).Msg("count failed login")
			}
		}
		return auth.TokenPair{}, err
	}
	if err := s.limiter.Reset(ctx, key); err != nil {
		log.Warn().Err(err).Str("client", client).Msg("reset login attempts")
	}
	return s.tokens.Issue(user)
}

// Refresh returns a new access token for a valid refresh token.
func (s *Service) Refresh(_ context.Context, refresh string) (dto.AccessResponse, error) {
	if strings.TrimSpace(refresh) == "" {
		return dto.AccessResponse{}, apperr.Invalid("refresh", "This field is required.")
	}
	access, err := s.tokens.Refresh(refresh)
	if err != nil {
		return dto.AccessResponse{}, err
	}
	return dto.AccessResponse{Access: access}, nil
}

// VerifyCredentials returns the user when password matches. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, apperr.ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	return user, nil
}

func usernameTaken() error {
	return apperr.InvalidAs(apperr.ErrUsernameTaken, "username", "A user with that username already exists.")
}
