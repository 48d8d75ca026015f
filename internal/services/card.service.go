package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/internal/repository"
	"github.com/rapidopay/card-gateway/pkg/logger"
)

var (
	ErrCardNotFound        = errors.New("card not found")
	ErrCardTypeNotFound    = errors.New("card type not found")
	ErrInvalidAmount       = errors.New("amount must be a positive whole number")
	ErrInsufficientBalance = errors.New("insufficient balance for purchase")
	ErrCardNotActive       = errors.New("only active cards can be blocked")
	ErrPromotionNotTopUp   = errors.New("card type promotions and bonus credit apply to top-ups only")
	ErrBarcodeExhausted    = errors.New("could not generate a unique barcode")
)

// barcode collisions are astronomically rare; a handful of retries is
// plenty before we give up on the generator.
const maxBarcodeAttempts = 5

type CardRepository interface {
	Create(ctx context.Context, card *model.Card) (*model.Card, error)
	GetByBarcode(ctx context.Context, barcode string) (*model.Card, error)
	GetForUpdate(ctx context.Context, barcode string) (*model.Card, error)
	ApplyMutation(ctx context.Context, barcode string, credit int64, status model.CardStatus, typeID *int64, now time.Time) error
	Block(ctx context.Context, barcode string, now time.Time) error
	UpdateType(ctx context.Context, barcode string, typeID int64, now time.Time) error
	List(ctx context.Context, f model.CardFilter) ([]*model.Card, int64, error)
	ListInactiveGrouped(ctx context.Context) ([]*model.InactiveCardGroup, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

type CardTypeRepository interface {
	GetByID(ctx context.Context, id int64) (*model.CardType, error)
}

// BarcodeGenerator produces candidate barcodes for newly issued cards.
type BarcodeGenerator interface {
	Generate() string
}

// TransactionPublisher fans finished ledger rows out to interested
// consumers (metrics, audit). Publishing is best-effort: the mutation
// has already committed by the time it runs.
type TransactionPublisher interface {
	PublishTransaction(ctx context.Context, txn *model.Transaction) error
}

type CardService struct {
	cardRepo  CardRepository
	txnRepo   TransactionRepository
	typeRepo  CardTypeRepository
	generator BarcodeGenerator
	publisher TransactionPublisher
	clock     Clock
}

func NewCardService(cardRepo CardRepository, txnRepo TransactionRepository, typeRepo CardTypeRepository, generator BarcodeGenerator, publisher TransactionPublisher, clock Clock) *CardService {
	if clock == nil {
		clock = SystemClock()
	}
	return &CardService{
		cardRepo:  cardRepo,
		txnRepo:   txnRepo,
		typeRepo:  typeRepo,
		generator: generator,
		publisher: publisher,
		clock:     clock,
	}
}

// TopUp runs one balance mutation: load the card under a row lock,
// compute the new balance and status, persist the card and the ledger
// row as a single atomic unit. A top-up on an inactive card activates
// it; a purchase that exceeds the balance fails without writing
// anything.
func (s *CardService) TopUp(ctx context.Context, p model.TopUpRequest) (*model.MutationResult, error) {
	if err := p.Validate(); err != nil {
		if p.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		return nil, err
	}

	// Only top-ups may carry a bonus, and a card type only prices a
	// promotion top-up; a purchase must debit exactly what was asked.
	if !p.IsTopUp && (p.CardTypeID != nil || p.Bonus != 0) {
		return nil, ErrPromotionNotTopUp
	}

	// Promotion top-up: the priced amount and bonus come from the card
	// type, not the caller.
	if p.CardTypeID != nil {
		ct, err := s.typeRepo.GetByID(ctx, *p.CardTypeID)
		if err != nil {
			if errors.Is(err, repository.ErrCardTypeNotFound) {
				return nil, ErrCardTypeNotFound
			}
			return nil, fmt.Errorf("load card type: %w", err)
		}
		p.Amount = ct.Price
		p.Bonus = ct.Bonus()
	}

	var (
		result  *model.MutationResult
		created *model.Transaction
	)
	err := s.cardRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		card, err := s.cardRepo.GetForUpdate(ctx, p.Barcode)
		if err != nil {
			if errors.Is(err, repository.ErrCardNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("load card: %w", err)
		}

		var (
			newBalance int64
			newStatus  = card.Status
			amount     = p.Amount
		)
		if p.IsTopUp {
			newBalance = card.Credit + p.Amount + p.Bonus
			if card.Status == model.CardStatusInactive {
				newStatus = model.CardStatusActive
			}
		} else {
			if p.Amount > card.Credit {
				return ErrInsufficientBalance
			}
			newBalance = card.Credit - p.Amount
			amount = -p.Amount
		}

		now := s.clock.Now()
		if err := s.cardRepo.ApplyMutation(ctx, p.Barcode, newBalance, newStatus, p.CardTypeID, now); err != nil {
			return fmt.Errorf("apply mutation: %w", err)
		}

		txn := &model.Transaction{
			Barcode:    p.Barcode,
			Amount:     amount,
			Bonus:      p.Bonus,
			OldBalance: card.Credit,
			NewBalance: newBalance,
			Date:       now,
		}
		created, err = s.txnRepo.Create(ctx, txn)
		if err != nil {
			return fmt.Errorf("append ledger row: %w", err)
		}

		result = &model.MutationResult{
			NewBalance: newBalance,
			NewStatus:  newStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransaction(ctx, created); err != nil {
			logger.Warn("transaction event publish failed",
				"barcode", created.Barcode,
				"error", err)
		}
	}
	return result, nil
}

// Block moves an active card to Blocked, clearing its type and freezing
// the balance in place. No ledger row is written; the frozen credit is
// later moved by a transfer.
func (s *CardService) Block(ctx context.Context, barcode string) error {
	return s.cardRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		card, err := s.cardRepo.GetForUpdate(ctx, barcode)
		if err != nil {
			if errors.Is(err, repository.ErrCardNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("load card: %w", err)
		}
		if card.Status != model.CardStatusActive {
			return ErrCardNotActive
		}
		return s.cardRepo.Block(ctx, barcode, s.clock.Now())
	})
}

func (s *CardService) Get(ctx context.Context, barcode string) (*model.Card, error) {
	card, err := s.cardRepo.GetByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return card, nil
}

func (s *CardService) List(ctx context.Context, f model.CardFilter) ([]*model.Card, int64, error) {
	return s.cardRepo.List(ctx, f)
}

func (s *CardService) ListInactiveGrouped(ctx context.Context) ([]*model.InactiveCardGroup, error) {
	return s.cardRepo.ListInactiveGrouped(ctx)
}

func (s *CardService) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	return s.txnRepo.List(ctx, f)
}

// UpdateType re-points a card at another card type without touching the
// balance.
func (s *CardService) UpdateType(ctx context.Context, barcode string, typeID int64) error {
	if _, err := s.typeRepo.GetByID(ctx, typeID); err != nil {
		if errors.Is(err, repository.ErrCardTypeNotFound) {
			return ErrCardTypeNotFound
		}
		return err
	}
	err := s.cardRepo.UpdateType(ctx, barcode, typeID, s.clock.Now())
	if errors.Is(err, repository.ErrCardNotFound) {
		return ErrCardNotFound
	}
	return err
}

// Issue creates quantity fresh inactive cards with generated barcodes,
// regenerating on the (rare) unique-constraint collision.
func (s *CardService) Issue(ctx context.Context, quantity int) ([]*model.Card, error) {
	if quantity <= 0 {
		return nil, ErrInvalidAmount
	}

	cards := make([]*model.Card, 0, quantity)
	for i := 0; i < quantity; i++ {
		card, err := s.issueOne(ctx)
		if err != nil {
			return cards, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (s *CardService) issueOne(ctx context.Context) (*model.Card, error) {
	for attempt := 0; attempt < maxBarcodeAttempts; attempt++ {
		now := s.clock.Now()
		card := &model.Card{
			Barcode:   s.generator.Generate(),
			Status:    model.CardStatusInactive,
			Credit:    0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		created, err := s.cardRepo.Create(ctx, card)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, repository.ErrDuplicateBarcode) {
			return nil, err
		}
	}
	return nil, ErrBarcodeExhausted
}
