package services

import (
	"context"
	"testing"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *model.Account) (*model.Account, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByPhone(ctx context.Context, phone string) (*model.Account, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]*model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Account), args.Error(1)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestAccountService_Authenticate(t *testing.T) {
	accounts := new(MockAccountRepository)
	ctx := context.Background()

	svc := NewAccountService(accounts)

	stored := &model.Account{ID: 1, Phone: "0912000000", Password: "c2VjcmV0aGFzaA", Role: model.AccountRoleAdmin}
	accounts.On("GetByPhone", ctx, "0912000000").Return(stored, nil)

	account, err := svc.Authenticate(ctx, "0912000000", "c2VjcmV0aGFzaA")
	require.NoError(t, err)
	assert.Equal(t, model.AccountRoleAdmin, account.Role)
}

func TestAccountService_Authenticate_WrongPassword(t *testing.T) {
	accounts := new(MockAccountRepository)
	ctx := context.Background()

	svc := NewAccountService(accounts)

	stored := &model.Account{ID: 1, Phone: "0912000000", Password: "c2VjcmV0aGFzaA"}
	accounts.On("GetByPhone", ctx, "0912000000").Return(stored, nil)

	_, err := svc.Authenticate(ctx, "0912000000", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccountService_Authenticate_UnknownPhone(t *testing.T) {
	accounts := new(MockAccountRepository)
	ctx := context.Background()

	svc := NewAccountService(accounts)

	accounts.On("GetByPhone", ctx, "0912999999").Return(nil, repository.ErrAccountNotFound)

	// Unknown phone and wrong password are indistinguishable to the
	// caller.
	_, err := svc.Authenticate(ctx, "0912999999", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccountService_Create_DuplicatePhone(t *testing.T) {
	accounts := new(MockAccountRepository)
	ctx := context.Background()

	svc := NewAccountService(accounts)

	accounts.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicatePhone)

	_, err := svc.Create(ctx, model.AccountCreateRequest{
		Name:     "Sara",
		Phone:    "0912000000",
		Password: "hash",
		Role:     model.AccountRoleCashier,
	})
	assert.ErrorIs(t, err, ErrDuplicatePhone)
}

func TestAccountService_Create_InvalidRole(t *testing.T) {
	svc := NewAccountService(new(MockAccountRepository))

	_, err := svc.Create(context.Background(), model.AccountCreateRequest{
		Name:     "Sara",
		Phone:    "0912000000",
		Password: "hash",
		Role:     "superuser",
	})
	assert.Error(t, err)
}
