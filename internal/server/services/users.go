package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/dbx"
	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/auth"
	"github.com/dmitrijs2005/memorylane/internal/server/config"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Tokens TokenPair
	User   *models.User
	// Resolved is how many pending invitations became participations.
	Resolved int
}

// InvitationResolver turns pending invitations of a freshly authenticated
// email into capsule participations.
type InvitationResolver interface {
	ResolveOnLogin(ctx context.Context, email, userID string) (int, error)
}

// ProfileUpdate carries the optional fields of a profile update. Nil means
// "leave unchanged".
type ProfileUpdate struct {
	Name         *string
	Email        *string
	Password     *string
	ProfileImage *string
}

// UserService provides account operations:
// - Register / Login / RefreshToken / Verify
// - profile read, update and delete, limited to the caller
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	resolver                     InvitationResolver
	log                          logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService. resolver may be nil, in which
// case logins do not touch invitations.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, resolver InvitationResolver, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		resolver:                     resolver,
		log:                          log.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates an account. A taken email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.NewValidationError("name", "is required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials, mints a TokenPair and resolves the pending
// invitations addressed to the account's email. Invitation failures are
// logged and never fail the login.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, err
	}

	res := &LoginResult{Tokens: *pair, User: user}
	if s.resolver != nil {
		n, err := s.resolver.ResolveOnLogin(ctx, user.Email, user.ID)
		if err != nil {
			s.log.Error(ctx, "resolving invitations failed", "user_id", user.ID, "error", err)
		}
		res.Resolved = n
	}
	return res, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Verify checks an access token and returns the identity it carries. A
// token whose account has since been deleted is rejected as invalid.
func (s *UserService) Verify(ctx context.Context, accessToken string) (auth.Identity, error) {
	id, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return auth.Identity{}, err
	}
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Identity{}, common.ErrInvalidToken
		}
		return auth.Identity{}, fmt.Errorf("error loading token owner: %w", err)
	}
	return id, nil
}

// GetProfile returns the account of userID. Only the account itself may
// read it.
func (s *UserService) GetProfile(ctx context.Context, callerID, userID string) (*models.User, error) {
	if callerID != userID {
		return nil, common.ErrorForbidden
	}
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// UpdateProfile applies upd to the caller's own account.
func (s *UserService) UpdateProfile(ctx context.Context, callerID, userID string, upd ProfileUpdate) (*models.User, error) {
	if callerID != userID {
		return nil, common.ErrorForbidden
	}
	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, common.NewValidationError("name", "is required")
		}
		u.Name = name
	}
	if upd.Email != nil {
		email := auth.NormalizeEmail(*upd.Email)
		if err := auth.ValidateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
	}
	if upd.Password != nil {
		if err := auth.ValidatePassword(*upd.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return nil, common.ErrorInternal
		}
		u.PasswordHash = hash
	}
	if upd.ProfileImage != nil {
		u.ProfileImage = strings.TrimSpace(*upd.ProfileImage)
	}

	out, err := repo.Update(ctx, u)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) || errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return out, nil
}

// DeleteProfile removes the caller's account together with every capsule it
// owns and its refresh tokens.
func (s *UserService) DeleteProfile(ctx context.Context, callerID, userID string) error {
	if callerID != userID {
		return common.ErrorForbidden
	}
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ids, err := s.repomanager.Capsules(tx).ListIDsByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("error listing owned capsules: %w", err)
		}
		for _, id := range ids {
			if err := deleteCapsuleCascade(ctx, s.repomanager, tx, id); err != nil {
				return err
			}
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("error deleting refresh tokens: %w", err)
		}
		return s.repomanager.Users(tx).Delete(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "user deleted", "user_id", userID)
	return nil
}

// --- helpers below ---

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(auth.Identity{UserID: user.ID, Email: user.Email, Name: user.Name},
		s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	expiresAt := time.Now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, expiresAt); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
