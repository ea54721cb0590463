package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apolyakov/staffdir/internal/apperrors"
	"github.com/apolyakov/staffdir/internal/logger"
	"github.com/apolyakov/staffdir/internal/models"
	"github.com/apolyakov/staffdir/internal/repository"
	"github.com/apolyakov/staffdir/internal/service/auth/tokenmanager"
)

// Pre-generated bcrypt hash of a throwaway value. Login burns a comparison
// against it when the username is unknown so the two failure paths take the
// same time.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type Config struct {
	// Hasher to compare passwords on login
	// Defaults to BcryptHasher
	Hasher PasswordHasher

	// Logger for internal failure causes that must not reach the client
	// Defaults to a no-op logger
	Logger logger.Logger
}

// Service orchestrates the token lifecycle: issue on login, rotate on
// refresh, revoke on logout. The ledger in storage is the only authority on
// whether a refresh token may still be exchanged; nothing is cached here.
type Service struct {
	token   *tokenmanager.TokenManager
	hasher  PasswordHasher
	storage repository.Storage
	logger  logger.Logger
}

func NewService(cfg Config, token *tokenmanager.TokenManager, storage repository.Storage) (*Service, error) {
	if token == nil || storage == nil {
		return nil, errors.New("token manager and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Service{
		token:   token,
		hasher:  hasher,
		storage: storage,
		logger:  log,
	}, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown username,
// wrong password and deactivated account all collapse to ErrAuthFailed; the
// real cause only goes to the log.
func (s *Service) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	employee, err := s.storage.Employee().GetEmployeeByUsername(ctx, username)
	if err != nil {
		_ = s.hasher.Compare(dummyHash, password)
		s.logger.Debug("login rejected: username not found", "username", username)
		return models.TokenPair{}, apperrors.ErrAuthFailed
	}

	if err := s.hasher.Compare(employee.PasswordHash, password); err != nil {
		s.logger.Debug("login rejected: password mismatch", "username", username)
		return models.TokenPair{}, apperrors.ErrAuthFailed
	}

	if !employee.IsActive {
		s.logger.Debug("login rejected: employee deactivated", "username", username)
		return models.TokenPair{}, apperrors.ErrAuthFailed
	}

	var pair models.TokenPair
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		pair, err = s.issuePair(ctx, st, employee)
		if err != nil {
			return err
		}

		return st.Employee().TouchLastLogin(ctx, employee.ID)
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while issuing tokens on login. Err: %w", err)
	}

	return pair, nil
}

// Refresh exchanges a usable refresh token for a fresh pair and rotates the
// presented one out. Strict single use: the check and the revoked flip happen
// in one guarded UPDATE, so of two concurrent calls with the same token
// exactly one wins.
func (s *Service) Refresh(ctx context.Context, tokenString string) (models.TokenPair, error) {
	parsed, err := s.token.Parse(tokenString)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, ok := parsed.(tokenmanager.ParsedRefresh)
	if !ok {
		return models.TokenPair{}, fmt.Errorf("refresh endpoint got %T: %w", parsed, apperrors.ErrWrongTokenKind)
	}

	var pair models.TokenPair
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		rotated, err := st.Refresh().RevokeIfUsable(ctx, refresh.TokenID, time.Now())
		if err != nil {
			return err
		}

		employee, err := st.Employee().GetEmployeeByID(ctx, rotated.EmployeeID)
		if err != nil {
			return err
		}

		pair, err = s.issuePair(ctx, st, employee)
		return err
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while rotating refresh token. Err: %w", err)
	}

	return pair, nil
}

// Logout revokes sessions for the presented token. A refresh token revokes
// its own ledger entry only; an access token carries no entry, so it revokes
// every refresh entry of the subject. Succeeds once the token parses even if
// nothing was actually revoked.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	parsed, err := s.token.Parse(tokenString)
	if err != nil {
		s.logger.Debug("logout rejected: token does not parse", "error", err.Error())
		return apperrors.ErrAuthFailed
	}

	switch token := parsed.(type) {
	case tokenmanager.ParsedRefresh:
		return s.storage.Refresh().Revoke(ctx, token.TokenID)

	case tokenmanager.ParsedAccess:
		employee, err := s.storage.Employee().GetEmployeeByUsername(ctx, token.Subject)
		switch {
		case errors.Is(err, apperrors.ErrEmployeeNotFound):
			// Subject is gone, there is nothing left to revoke
			return nil
		case err != nil:
			return fmt.Errorf("error while resolving logout subject. Err: %w", err)
		}

		return s.storage.Refresh().RevokeAllForEmployee(ctx, employee.ID)
	}

	return nil
}

// Authenticate resolves an access token to its employee. Used by the auth
// middleware; a refresh token presented here is rejected.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (models.Employee, error) {
	parsed, err := s.token.Parse(tokenString)
	if err != nil {
		return models.Employee{}, apperrors.ErrAuthFailed
	}

	access, ok := parsed.(tokenmanager.ParsedAccess)
	if !ok {
		return models.Employee{}, apperrors.ErrAuthFailed
	}

	employee, err := s.storage.Employee().GetEmployeeByUsername(ctx, access.Subject)
	if err != nil {
		return models.Employee{}, apperrors.ErrAuthFailed
	}

	if !employee.IsActive {
		return models.Employee{}, apperrors.ErrAuthFailed
	}

	return employee, nil
}

// issuePair mints an access and a refresh token and records the refresh
// ledger entry within the caller's storage (transaction when rotation is in
// flight). A jti collision is vanishingly unlikely but never overwritten:
// re-mint once, then give up.
func (s *Service) issuePair(ctx context.Context, st repository.Storage, employee models.Employee) (models.TokenPair, error) {
	access, err := s.token.MintAccess(employee.Username)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, jti, err := s.token.MintRefresh(employee.Username)
	if err != nil {
		return models.TokenPair{}, err
	}

	entry := models.RefreshToken{
		ID:         jti,
		EmployeeID: employee.ID,
		CreatedAt:  time.Now().Truncate(time.Second),
		ExpiresAt:  refresh.ExpiresAt,
		Revoked:    false,
	}

	_, err = st.Refresh().Save(ctx, entry)
	if errors.Is(err, apperrors.ErrTokenAlreadyExists) {
		s.logger.Warn("refresh jti collision, re-minting", "jti", jti.String())

		refresh, jti, err = s.token.MintRefresh(employee.Username)
		if err != nil {
			return models.TokenPair{}, err
		}

		entry.ID = jti
		entry.ExpiresAt = refresh.ExpiresAt
		_, err = st.Refresh().Save(ctx, entry)
	}
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}
