package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/internal/repository"
	"github.com/rapidopay/card-gateway/pkg/logger"
	"github.com/rapidopay/card-gateway/pkg/prom"
)

var (
	ErrSourceNotBlocked       = errors.New("source card must be blocked before transfer")
	ErrDestinationNotEligible = errors.New("destination card cannot be blocked")
	ErrNothingToTransfer      = errors.New("source card has no balance to transfer")
	// ErrTransferIncomplete means the withdrawal committed but the
	// deposit did not: the amount sits on neither card and needs manual
	// reconciliation from the ledger.
	ErrTransferIncomplete = errors.New("transfer incomplete: withdrawal committed, deposit failed")
)

// BalanceMutator is the mutation engine as the transfer workflow sees
// it.
type BalanceMutator interface {
	TopUp(ctx context.Context, p model.TopUpRequest) (*model.MutationResult, error)
}

type CardReader interface {
	GetByBarcode(ctx context.Context, barcode string) (*model.Card, error)
}

// TransferService moves the full balance of a blocked card onto a
// replacement card. The move is two ledger mutations, not one atomic
// unit: a withdrawal from the source, then a deposit to the
// destination. If the deposit fails after the withdrawal committed,
// the ledger rows are the recovery record.
type TransferService struct {
	cards  CardReader
	engine BalanceMutator
}

func NewTransferService(cards CardReader, engine BalanceMutator) *TransferService {
	return &TransferService{
		cards:  cards,
		engine: engine,
	}
}

func (s *TransferService) Transfer(ctx context.Context, srcBarcode, dstBarcode string) (*model.MutationResult, error) {
	src, err := s.getCard(ctx, srcBarcode)
	if err != nil {
		return nil, err
	}
	dst, err := s.getCard(ctx, dstBarcode)
	if err != nil {
		return nil, err
	}

	if src.Status != model.CardStatusBlocked {
		return nil, ErrSourceNotBlocked
	}
	if dst.Status == model.CardStatusBlocked {
		return nil, ErrDestinationNotEligible
	}
	if src.Credit <= 0 {
		return nil, ErrNothingToTransfer
	}

	amount := src.Credit

	if _, err := s.engine.TopUp(ctx, model.TopUpRequest{
		Barcode: srcBarcode,
		Amount:  amount,
		IsTopUp: false,
	}); err != nil {
		return nil, fmt.Errorf("withdraw from source: %w", err)
	}

	result, err := s.engine.TopUp(ctx, model.TopUpRequest{
		Barcode: dstBarcode,
		Amount:  amount,
		IsTopUp: true,
	})
	if err != nil {
		logger.Error("transfer deposit failed after withdrawal committed",
			"source", srcBarcode,
			"destination", dstBarcode,
			"amount", amount,
			"error", err)
		return nil, fmt.Errorf("%w: deposit %d to %s: %v", ErrTransferIncomplete, amount, dstBarcode, err)
	}

	prom.IncCounter(prom.SystemLedger, prom.MetricTransfersTotal)
	return result, nil
}

func (s *TransferService) getCard(ctx context.Context, barcode string) (*model.Card, error) {
	card, err := s.cards.GetByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return card, nil
}
