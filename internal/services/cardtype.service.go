package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/internal/repository"
)

var ErrInvalidCardType = errors.New("card type credit must cover its price")

type CardTypeStore interface {
	Create(ctx context.Context, t *model.CardType) (*model.CardType, error)
	GetByID(ctx context.Context, id int64) (*model.CardType, error)
	List(ctx context.Context) ([]*model.CardType, error)
	Delete(ctx context.Context, id int64) error
}

type CardTypeResetter interface {
	ResetType(ctx context.Context, typeID int64) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CardTypeService struct {
	types CardTypeStore
	cards CardTypeResetter
}

func NewCardTypeService(types CardTypeStore, cards CardTypeResetter) *CardTypeService {
	return &CardTypeService{
		types: types,
		cards: cards,
	}
}

// Create defines a promotion: the customer pays Price and the card is
// credited BonusCredit, so BonusCredit must be at least the price.
func (s *CardTypeService) Create(ctx context.Context, t *model.CardType) (*model.CardType, error) {
	if t.Price <= 0 || t.BonusCredit < t.Price {
		return nil, ErrInvalidCardType
	}
	return s.types.Create(ctx, t)
}

func (s *CardTypeService) List(ctx context.Context) ([]*model.CardType, error) {
	return s.types.List(ctx)
}

// Delete removes a type and reverts every card carrying it back to
// "no type", atomically.
func (s *CardTypeService) Delete(ctx context.Context, id int64) error {
	return s.cards.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.types.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrCardTypeNotFound) {
				return ErrCardTypeNotFound
			}
			return err
		}
		if err := s.cards.ResetType(ctx, id); err != nil {
			return fmt.Errorf("reset cards of type %d: %w", id, err)
		}
		return nil
	})
}
