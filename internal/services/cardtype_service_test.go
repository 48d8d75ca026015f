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

type MockCardTypeStore struct {
	mock.Mock
}

func (m *MockCardTypeStore) Create(ctx context.Context, t *model.CardType) (*model.CardType, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CardType), args.Error(1)
}

func (m *MockCardTypeStore) GetByID(ctx context.Context, id int64) (*model.CardType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CardType), args.Error(1)
}

func (m *MockCardTypeStore) List(ctx context.Context) ([]*model.CardType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CardType), args.Error(1)
}

func (m *MockCardTypeStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCardTypeResetter struct {
	mock.Mock
}

func (m *MockCardTypeResetter) ResetType(ctx context.Context, typeID int64) error {
	args := m.Called(ctx, typeID)
	return args.Error(0)
}

func (m *MockCardTypeResetter) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

func TestCardTypeService_Create_RejectsLossyPromotion(t *testing.T) {
	svc := NewCardTypeService(new(MockCardTypeStore), new(MockCardTypeResetter))

	cases := []*model.CardType{
		{Price: 0, BonusCredit: 100},
		{Price: -10, BonusCredit: 100},
		{Price: 1000, BonusCredit: 900},
	}
	for _, ct := range cases {
		_, err := svc.Create(context.Background(), ct)
		assert.ErrorIs(t, err, ErrInvalidCardType)
	}
}

func TestCardTypeService_Create(t *testing.T) {
	types := new(MockCardTypeStore)
	ctx := context.Background()

	svc := NewCardTypeService(types, new(MockCardTypeResetter))

	in := &model.CardType{Price: 1000, BonusCredit: 1200}
	types.On("Create", ctx, in).Return(&model.CardType{ID: 1, Price: 1000, BonusCredit: 1200}, nil)

	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(200), created.Bonus())
}

func TestCardTypeService_Delete_CascadesToCards(t *testing.T) {
	types := new(MockCardTypeStore)
	cards := new(MockCardTypeResetter)
	ctx := context.Background()

	svc := NewCardTypeService(types, cards)

	cards.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	types.On("Delete", mock.Anything, int64(3)).Return(nil)
	cards.On("ResetType", mock.Anything, int64(3)).Return(nil)

	err := svc.Delete(ctx, 3)
	require.NoError(t, err)
	cards.AssertExpectations(t)
	types.AssertExpectations(t)
}

func TestCardTypeService_Delete_UnknownType(t *testing.T) {
	types := new(MockCardTypeStore)
	cards := new(MockCardTypeResetter)
	ctx := context.Background()

	svc := NewCardTypeService(types, cards)

	cards.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	types.On("Delete", mock.Anything, int64(99)).Return(repository.ErrCardTypeNotFound)

	err := svc.Delete(ctx, 99)
	assert.ErrorIs(t, err, ErrCardTypeNotFound)
	cards.AssertNotCalled(t, "ResetType", mock.Anything, mock.Anything)
}
