package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) Create(ctx context.Context, card *model.Card) (*model.Card, error) {
	args := m.Called(ctx, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Card), args.Error(1)
}

func (m *MockCardRepository) GetByBarcode(ctx context.Context, barcode string) (*model.Card, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Card), args.Error(1)
}

func (m *MockCardRepository) GetForUpdate(ctx context.Context, barcode string) (*model.Card, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Card), args.Error(1)
}

func (m *MockCardRepository) ApplyMutation(ctx context.Context, barcode string, credit int64, status model.CardStatus, typeID *int64, now time.Time) error {
	args := m.Called(ctx, barcode, credit, status, typeID, now)
	return args.Error(0)
}

func (m *MockCardRepository) Block(ctx context.Context, barcode string, now time.Time) error {
	args := m.Called(ctx, barcode, now)
	return args.Error(0)
}

func (m *MockCardRepository) UpdateType(ctx context.Context, barcode string, typeID int64, now time.Time) error {
	args := m.Called(ctx, barcode, typeID, now)
	return args.Error(0)
}

func (m *MockCardRepository) List(ctx context.Context, f model.CardFilter) ([]*model.Card, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Card), args.Get(1).(int64), args.Error(2)
}

func (m *MockCardRepository) ListInactiveGrouped(ctx context.Context) ([]*model.InactiveCardGroup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.InactiveCardGroup), args.Error(1)
}

func (m *MockCardRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

type MockCardTypeRepository struct {
	mock.Mock
}

func (m *MockCardTypeRepository) GetByID(ctx context.Context, id int64) (*model.CardType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CardType), args.Error(1)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubGenerator struct {
	codes []string
	i     int
}

func (g *stubGenerator) Generate() string {
	code := g.codes[g.i%len(g.codes)]
	g.i++
	return code
}

var testNow = time.Date(2024, 3, 13, 10, 30, 0, 0, time.UTC)

func newTestCardService(cardRepo *MockCardRepository, txnRepo *MockLedgerRepository, typeRepo *MockCardTypeRepository) *CardService {
	return NewCardService(cardRepo, txnRepo, typeRepo, &stubGenerator{codes: []string{"100000000017"}}, nil, fixedClock{now: testNow})
}

func TestCardService_TopUp_ActivatesInactiveCard(t *testing.T) {
	cardRepo := new(MockCardRepository)
	txnRepo := new(MockLedgerRepository)
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, txnRepo, typeRepo)

	card := &model.Card{Barcode: "123456789012", Status: model.CardStatusInactive, Credit: 0}

	cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	cardRepo.On("GetForUpdate", mock.Anything, "123456789012").Return(card, nil)
	cardRepo.On("ApplyMutation", mock.Anything, "123456789012", int64(500), model.CardStatusActive, (*int64)(nil), testNow).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.Amount == 500 && txn.OldBalance == 0 && txn.NewBalance == 500 && txn.Bonus == 0
	})).Return(&model.Transaction{ID: 1}, nil)

	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 500, IsTopUp: true})
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.NewBalance)
	assert.Equal(t, model.CardStatusActive, result.NewStatus)

	cardRepo.AssertExpectations(t)
	txnRepo.AssertExpectations(t)
}

func TestCardService_TopUp_PurchaseDebitsBalance(t *testing.T) {
	cardRepo := new(MockCardRepository)
	txnRepo := new(MockLedgerRepository)
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, txnRepo, typeRepo)

	card := &model.Card{Barcode: "123456789012", Status: model.CardStatusActive, Credit: 1000}

	cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	cardRepo.On("GetForUpdate", mock.Anything, "123456789012").Return(card, nil)
	cardRepo.On("ApplyMutation", mock.Anything, "123456789012", int64(700), model.CardStatusActive, (*int64)(nil), testNow).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.Amount == -300 && txn.OldBalance == 1000 && txn.NewBalance == 700
	})).Return(&model.Transaction{ID: 2}, nil)

	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 300, IsTopUp: false})
	require.NoError(t, err)
	assert.Equal(t, int64(700), result.NewBalance)
	assert.Equal(t, model.CardStatusActive, result.NewStatus)

	cardRepo.AssertExpectations(t)
}

func TestCardService_TopUp_InsufficientBalance(t *testing.T) {
	cardRepo := new(MockCardRepository)
	txnRepo := new(MockLedgerRepository)
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, txnRepo, typeRepo)

	card := &model.Card{Barcode: "123456789012", Status: model.CardStatusActive, Credit: 200}

	cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	cardRepo.On("GetForUpdate", mock.Anything, "123456789012").Return(card, nil)

	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 300, IsTopUp: false})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Nil(t, result)

	// No card write and no ledger row on a refused purchase.
	cardRepo.AssertNotCalled(t, "ApplyMutation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCardService_TopUp_ExactBalancePurchase(t *testing.T) {
	cardRepo := new(MockCardRepository)
	txnRepo := new(MockLedgerRepository)
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, txnRepo, typeRepo)

	card := &model.Card{Barcode: "123456789012", Status: model.CardStatusActive, Credit: 300}

	cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	cardRepo.On("GetForUpdate", mock.Anything, "123456789012").Return(card, nil)
	cardRepo.On("ApplyMutation", mock.Anything, "123456789012", int64(0), model.CardStatusActive, (*int64)(nil), testNow).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.Anything).Return(&model.Transaction{ID: 3}, nil)

	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 300, IsTopUp: false})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.NewBalance)
}

func TestCardService_TopUp_InvalidAmount(t *testing.T) {
	svc := newTestCardService(new(MockCardRepository), new(MockLedgerRepository), new(MockCardTypeRepository))

	for _, amount := range []int64{0, -50} {
		result, err := svc.TopUp(context.Background(), model.TopUpRequest{Barcode: "123456789012", Amount: amount, IsTopUp: true})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Nil(t, result)
	}
}

func TestCardService_TopUp_CardNotFound(t *testing.T) {
	cardRepo := new(MockCardRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, new(MockLedgerRepository), new(MockCardTypeRepository))

	cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	cardRepo.On("GetForUpdate", mock.Anything, "999999999999").Return(nil, repository.ErrCardNotFound)

	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "999999999999", Amount: 100, IsTopUp: true})
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.Nil(t, result)
}

func TestCardService_TopUp_PromotionUsesTypePricing(t *testing.T) {
	cardRepo := new(MockCardRepository)
	txnRepo := new(MockLedgerRepository)
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, txnRepo, typeRepo)

	typeID := int64(4)
	typeRepo.On("GetByID", ctx, typeID).Return(&model.CardType{ID: 4, Price: 1000, BonusCredit: 1200}, nil)

	card := &model.Card{Barcode: "123456789012", Status: model.CardStatusActive, Credit: 100}

	cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	cardRepo.On("GetForUpdate", mock.Anything, "123456789012").Return(card, nil)
	// 100 + price 1000 + bonus 200, and the type is assigned in the same unit.
	cardRepo.On("ApplyMutation", mock.Anything, "123456789012", int64(1300), model.CardStatusActive, &typeID, testNow).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.Amount == 1000 && txn.Bonus == 200 && txn.NewBalance == 1300
	})).Return(&model.Transaction{ID: 4}, nil)

	// Caller-supplied amount is ignored for promotion top-ups.
	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 999, IsTopUp: true, CardTypeID: &typeID})
	require.NoError(t, err)
	assert.Equal(t, int64(1300), result.NewBalance)

	typeRepo.AssertExpectations(t)
	cardRepo.AssertExpectations(t)
}

func TestCardService_TopUp_PurchaseRejectsCardType(t *testing.T) {
	cardRepo := new(MockCardRepository)
	txnRepo := new(MockLedgerRepository)
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, txnRepo, typeRepo)

	// A purchase must debit exactly the requested amount; a card type
	// would silently swap in its promotion price and attach a bonus.
	typeID := int64(7)
	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 200, IsTopUp: false, CardTypeID: &typeID})
	assert.ErrorIs(t, err, ErrPromotionNotTopUp)
	assert.Nil(t, result)

	typeRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	cardRepo.AssertNotCalled(t, "ApplyMutation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCardService_TopUp_PurchaseRejectsBonus(t *testing.T) {
	cardRepo := new(MockCardRepository)
	txnRepo := new(MockLedgerRepository)
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, txnRepo, typeRepo)

	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 200, IsTopUp: false, Bonus: 50})
	assert.ErrorIs(t, err, ErrPromotionNotTopUp)
	assert.Nil(t, result)

	cardRepo.AssertNotCalled(t, "WithinTransaction", mock.Anything, mock.Anything)
}

func TestCardService_TopUp_UnknownCardType(t *testing.T) {
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(new(MockCardRepository), new(MockLedgerRepository), typeRepo)

	typeID := int64(42)
	typeRepo.On("GetByID", ctx, typeID).Return(nil, repository.ErrCardTypeNotFound)

	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 100, IsTopUp: true, CardTypeID: &typeID})
	assert.ErrorIs(t, err, ErrCardTypeNotFound)
	assert.Nil(t, result)
}

func TestCardService_TopUp_LedgerFailureRollsBack(t *testing.T) {
	cardRepo := new(MockCardRepository)
	txnRepo := new(MockLedgerRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, txnRepo, new(MockCardTypeRepository))

	card := &model.Card{Barcode: "123456789012", Status: model.CardStatusActive, Credit: 0}

	cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	cardRepo.On("GetForUpdate", mock.Anything, "123456789012").Return(card, nil)
	cardRepo.On("ApplyMutation", mock.Anything, "123456789012", int64(100), model.CardStatusActive, (*int64)(nil), testNow).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

	result, err := svc.TopUp(ctx, model.TopUpRequest{Barcode: "123456789012", Amount: 100, IsTopUp: true})
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestCardService_Block_OnlyActiveCards(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		status  model.CardStatus
		wantErr error
	}{
		{"inactive card", model.CardStatusInactive, ErrCardNotActive},
		{"already blocked", model.CardStatusBlocked, ErrCardNotActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cardRepo := new(MockCardRepository)
			svc := newTestCardService(cardRepo, new(MockLedgerRepository), new(MockCardTypeRepository))

			cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
			cardRepo.On("GetForUpdate", mock.Anything, "123456789012").Return(&model.Card{Barcode: "123456789012", Status: tc.status, Credit: 50}, nil)

			err := svc.Block(ctx, "123456789012")
			assert.ErrorIs(t, err, tc.wantErr)
			cardRepo.AssertNotCalled(t, "Block", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCardService_Block_ActiveCard(t *testing.T) {
	cardRepo := new(MockCardRepository)
	ctx := context.Background()

	svc := newTestCardService(cardRepo, new(MockLedgerRepository), new(MockCardTypeRepository))

	cardRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	cardRepo.On("GetForUpdate", mock.Anything, "123456789012").Return(&model.Card{Barcode: "123456789012", Status: model.CardStatusActive, Credit: 50}, nil)
	cardRepo.On("Block", mock.Anything, "123456789012", testNow).Return(nil)

	err := svc.Block(ctx, "123456789012")
	require.NoError(t, err)
	cardRepo.AssertExpectations(t)
}

func TestCardService_Issue_RetriesOnBarcodeCollision(t *testing.T) {
	cardRepo := new(MockCardRepository)
	ctx := context.Background()

	gen := &stubGenerator{codes: []string{"111111111117", "222222222226"}}
	svc := NewCardService(cardRepo, new(MockLedgerRepository), new(MockCardTypeRepository), gen, nil, fixedClock{now: testNow})

	cardRepo.On("Create", ctx, mock.MatchedBy(func(c *model.Card) bool {
		return c.Barcode == "111111111117"
	})).Return(nil, repository.ErrDuplicateBarcode)
	cardRepo.On("Create", ctx, mock.MatchedBy(func(c *model.Card) bool {
		return c.Barcode == "222222222226"
	})).Return(&model.Card{ID: 9, Barcode: "222222222226", Status: model.CardStatusInactive}, nil)

	cards, err := svc.Issue(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "222222222226", cards[0].Barcode)
}

func TestCardService_Issue_GivesUpAfterRepeatedCollisions(t *testing.T) {
	cardRepo := new(MockCardRepository)
	ctx := context.Background()

	gen := &stubGenerator{codes: []string{"111111111117"}}
	svc := NewCardService(cardRepo, new(MockLedgerRepository), new(MockCardTypeRepository), gen, nil, fixedClock{now: testNow})

	cardRepo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicateBarcode)

	_, err := svc.Issue(ctx, 1)
	assert.ErrorIs(t, err, ErrBarcodeExhausted)
}

func TestCardService_UpdateType_UnknownType(t *testing.T) {
	typeRepo := new(MockCardTypeRepository)
	ctx := context.Background()

	svc := newTestCardService(new(MockCardRepository), new(MockLedgerRepository), typeRepo)

	typeRepo.On("GetByID", ctx, int64(7)).Return(nil, repository.ErrCardTypeNotFound)

	err := svc.UpdateType(ctx, "123456789012", 7)
	assert.ErrorIs(t, err, ErrCardTypeNotFound)
}
