package services

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/internal/repository"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicatePhone     = errors.New("phone already registered")
	ErrInvalidCredentials = errors.New("invalid phone or password")
)

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) (*model.Account, error)
	GetByPhone(ctx context.Context, phone string) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	Delete(ctx context.Context, id int64) error
}

type AccountService struct {
	accounts AccountRepository
}

func NewAccountService(accounts AccountRepository) *AccountService {
	return &AccountService{
		accounts: accounts,
	}
}

// Authenticate checks a phone/password pair and returns the matching
// account. Credential secrecy is handled upstream: passwords arrive
// already hashed by the caller's scheme, and comparison here is
// constant-time on the stored value.
func (s *AccountService) Authenticate(ctx context.Context, phone, password string) (*model.Account, error) {
	account, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(account.Password), []byte(password)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

func (s *AccountService) Create(ctx context.Context, p model.AccountCreateRequest) (*model.Account, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	account, err := s.accounts.Create(ctx, &model.Account{
		Name:     p.Name,
		Phone:    p.Phone,
		Password: p.Password,
		Role:     p.Role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, ErrDuplicatePhone
		}
		return nil, err
	}
	return account, nil
}

func (s *AccountService) List(ctx context.Context) ([]*model.Account, error) {
	return s.accounts.List(ctx)
}

func (s *AccountService) Delete(ctx context.Context, id int64) error {
	err := s.accounts.Delete(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return ErrAccountNotFound
	}
	return err
}
