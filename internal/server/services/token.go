// Package services contains server-side business logic. This file implements
// TokenService, which mints, verifies and revokes the local tokens handed to
// clients after a successful vendor login.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/dbx"
	"github.com/dmitrijs2005/intercomkey/internal/server/auth"
	"github.com/dmitrijs2005/intercomkey/internal/server/config"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/repomanager"
)

// TokenService issues local tokens. Each user signs with its own key derived
// from the server secret and the user's secret, so rotating the user's secret
// revokes every token minted before.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	master      []byte
	validity    time.Duration
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		master:      []byte(cfg.SecretKey),
		validity:    cfg.LocalTokenValidityDuration,
	}
}

// Mint signs a token for user. A user without a secret gets one first. The
// token is stored as the user's current local token. tx may be the database
// or an open transaction.
func (s *TokenService) Mint(ctx context.Context, tx dbx.DBTX, user *models.User) (string, error) {
	repo := s.repomanager.Users(tx)

	if !user.HasSecret() {
		secret, err := newSecret()
		if err != nil {
			return "", err
		}
		if err := repo.UpdateSecret(ctx, user.ID, secret); err != nil {
			return "", fmt.Errorf("error storing user secret: %w", err)
		}
		user.SecretKey = secret
	}

	key, err := auth.SigningKey(s.master, []byte(user.SecretKey))
	if err != nil {
		return "", common.ErrorInternal
	}
	defer common.WipeByteArray(key)

	token, err := auth.GenerateToken(user.ID, key, s.validity)
	if err != nil {
		return "", common.ErrorInternal
	}

	if err := repo.UpdateLocalToken(ctx, user.ID, token); err != nil {
		return "", fmt.Errorf("error storing local token: %w", err)
	}
	user.LocalToken = token

	return token, nil
}

// Verify returns the user a token was minted for. Any failure, including an
// unknown user, yields common.ErrInvalidToken.
func (s *TokenService) Verify(ctx context.Context, token string) (string, error) {
	repo := s.repomanager.Users(s.db)

	claims, ok := auth.VerifyTokenWith(token, func(userID string) ([]byte, error) {
		user, err := repo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !user.HasSecret() {
			return nil, errors.New("user has no secret")
		}
		return auth.SigningKey(s.master, []byte(user.SecretKey))
	})
	if !ok {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}

// Rotate replaces the user's secret and forgets the stored local token.
func (s *TokenService) Rotate(ctx context.Context, userID string) error {
	secret, err := newSecret()
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.UpdateSecret(ctx, userID, secret); err != nil {
			return fmt.Errorf("error rotating user secret: %w", err)
		}
		if err := repo.UpdateLocalToken(ctx, userID, ""); err != nil {
			return fmt.Errorf("error clearing local token: %w", err)
		}
		return nil
	})
}

func newSecret() (string, error) {
	secret, err := common.MakeRandHexString(common.SecretKeySize)
	if err != nil {
		return "", common.ErrorInternal
	}
	return secret, nil
}
