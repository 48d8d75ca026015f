package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
)

type LedgerReportRepository interface {
	TotalIncome(ctx context.Context) (int64, error)
	TotalPurchases(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	TopUpStats(ctx context.Context) (total int64, count int64, err error)
	DistinctActiveDays(ctx context.Context) (int64, error)
	IncomeBetween(ctx context.Context, from, to time.Time) ([]*model.Transaction, error)
}

type CardReportRepository interface {
	CountByStatus(ctx context.Context) (*model.TodayReport, error)
	TypeDistribution(ctx context.Context) ([]*model.CardTypeCount, error)
}

type ReportService struct {
	ledger LedgerReportRepository
	cards  CardReportRepository
	clock  Clock
}

func NewReportService(ledger LedgerReportRepository, cards CardReportRepository, clock Clock) *ReportService {
	if clock == nil {
		clock = SystemClock()
	}
	return &ReportService{
		ledger: ledger,
		cards:  cards,
		clock:  clock,
	}
}

// Today returns the fleet snapshot by status. It reads current card
// rows, not the ledger, so it reflects blocks and issuance immediately.
func (s *ReportService) Today(ctx context.Context) (*model.TodayReport, error) {
	return s.cards.CountByStatus(ctx)
}

// Analytics derives the whole-history figures: gross income, gross
// purchases, and the two rounded averages. Averages over an empty
// ledger are zero, not an error.
func (s *ReportService) Analytics(ctx context.Context) (*model.Analytics, error) {
	income, err := s.ledger.TotalIncome(ctx)
	if err != nil {
		return nil, fmt.Errorf("total income: %w", err)
	}
	purchases, err := s.ledger.TotalPurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("total purchases: %w", err)
	}
	topUpTotal, topUpCount, err := s.ledger.TopUpStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("top-up stats: %w", err)
	}
	txnCount, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("transaction count: %w", err)
	}
	activeDays, err := s.ledger.DistinctActiveDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("active days: %w", err)
	}

	a := &model.Analytics{
		TotalIncome:    income,
		TotalPurchases: purchases,
	}
	if topUpCount > 0 {
		a.AvgTopUpAmount = roundDiv(topUpTotal, topUpCount)
	}
	if activeDays > 0 {
		a.AvgDailyTransactions = roundDiv(txnCount, activeDays)
	}
	return a, nil
}

// WeeklyIncome buckets the current week's top-up amounts by weekday.
// The week is anchored on Sunday of the clock's current day.
func (s *ReportService) WeeklyIncome(ctx context.Context) ([]*model.WeekdayIncome, error) {
	now := s.clock.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := day.AddDate(0, 0, -int(day.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 7)

	rows, err := s.ledger.IncomeBetween(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("weekly income: %w", err)
	}

	buckets := make([]*model.WeekdayIncome, 7)
	for i := range buckets {
		buckets[i] = &model.WeekdayIncome{Weekday: i}
	}
	for _, txn := range rows {
		buckets[int(txn.Date.Weekday())].Income += txn.Amount
	}
	return buckets, nil
}

// TypeDistribution counts cards per assigned card type.
func (s *ReportService) TypeDistribution(ctx context.Context) ([]*model.CardTypeCount, error) {
	return s.cards.TypeDistribution(ctx)
}

// roundDiv is an integer division rounded half-up, matching how the
// dashboard displays averages in whole dinars.
func roundDiv(total, count int64) int64 {
	return int64(math.Round(float64(total) / float64(count)))
}
