package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/dbx"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/repomanager"
)

// AccountService ties vendor logins to local users.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService) *AccountService {
	return &AccountService{db: db, repomanager: m, tokens: tokens}
}

// FindLogin returns the stored login or common.ErrorNotFound.
func (s *AccountService) FindLogin(ctx context.Context, login string) (*models.Login, error) {
	return s.repomanager.Logins(s.db).GetByLogin(ctx, login)
}

// SignIn records a fresh vendor token for login and returns a local token for
// the owning user. Unknown logins get a new user. Everything happens in one
// transaction.
func (s *AccountService) SignIn(ctx context.Context, login, vendorToken string, expiresAt *time.Time) (string, error) {
	var token string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		loginRepo := s.repomanager.Logins(tx)
		userRepo := s.repomanager.Users(tx)

		var user *models.User

		existing, err := loginRepo.GetByLogin(ctx, login)
		switch {
		case err == nil:
			if err := loginRepo.UpdateVendorToken(ctx, existing.ID, vendorToken, expiresAt); err != nil {
				return fmt.Errorf("error updating vendor token: %w", err)
			}
			if user, err = userRepo.GetByID(ctx, existing.UserID); err != nil {
				return fmt.Errorf("error loading user: %w", err)
			}

		case errors.Is(err, common.ErrorNotFound):
			if user, err = userRepo.Create(ctx); err != nil {
				return fmt.Errorf("error creating user: %w", err)
			}
			_, err = loginRepo.Create(ctx, &models.Login{
				Login:       login,
				UserID:      user.ID,
				VendorToken: vendorToken,
				ExpiresAt:   expiresAt,
			})
			if err != nil {
				return fmt.Errorf("error creating login: %w", err)
			}

		default:
			return fmt.Errorf("error searching login: %w", err)
		}

		token, err = s.tokens.Mint(ctx, tx, user)
		return err
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// LoginsOf lists the logins owned by userID.
func (s *AccountService) LoginsOf(ctx context.Context, userID string) ([]*models.Login, error) {
	return s.repomanager.Logins(s.db).ListByUser(ctx, userID)
}

// OwnsLogin returns the login when it belongs to userID and
// common.ErrorForbidden when it belongs to someone else or does not exist.
func (s *AccountService) OwnsLogin(ctx context.Context, userID, login string) (*models.Login, error) {
	l, err := s.repomanager.Logins(s.db).GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorForbidden
		}
		return nil, err
	}
	if l.UserID != userID {
		return nil, common.ErrorForbidden
	}
	return l, nil
}
