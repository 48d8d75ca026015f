package repository

import (
	"context"
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/pkg/pg"
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

// Create appends one ledger row. Rows are immutable once written; there
// is no update or delete path on this repository.
func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{})

	if f.Barcode != nil {
		q = q.Where("barcode = ?", *f.Barcode)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Desc {
		q = q.Order("date DESC, id DESC")
	} else {
		q = q.Order("date ASC, id ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var entities []*TransactionEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toTransactionModels(entities), total, nil
}

// TotalIncome is the sum of all positive ledger amounts.
func (r *TransactionRepository) TotalIncome(ctx context.Context) (int64, error) {
	return r.sumWhere(ctx, "amount > 0")
}

// TotalPurchases is the absolute sum of all negative ledger amounts.
func (r *TransactionRepository) TotalPurchases(ctx context.Context) (int64, error) {
	sum, err := r.sumWhere(ctx, "amount < 0")
	if err != nil {
		return 0, err
	}
	if sum < 0 {
		sum = -sum
	}
	return sum, nil
}

func (r *TransactionRepository) sumWhere(ctx context.Context, cond string) (int64, error) {
	var sum *int64

	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Select("SUM(amount)").
		Where(cond).
		Scan(&sum).
		Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Count(&count).
		Error
	return count, err
}

// TopUpStats returns the sum and count of top-up rows, the inputs of
// the average-top-up figure.
func (r *TransactionRepository) TopUpStats(ctx context.Context) (total int64, count int64, err error) {
	total, err = r.sumWhere(ctx, "amount > 0")
	if err != nil {
		return 0, 0, err
	}

	err = r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("amount > 0").
		Count(&count).
		Error
	if err != nil {
		return 0, 0, err
	}

	return total, count, nil
}

// DistinctActiveDays counts calendar days with at least one ledger row.
// Day extraction is dialect-dependent, so rows are bucketed here rather
// than in SQL; volumes are small (one retail outlet).
func (r *TransactionRepository) DistinctActiveDays(ctx context.Context) (int64, error) {
	var dates []time.Time
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Pluck("date", &dates).
		Error
	if err != nil {
		return 0, err
	}

	days := map[string]struct{}{}
	for _, d := range dates {
		days[d.Format("2006-01-02")] = struct{}{}
	}
	return int64(len(days)), nil
}

// IncomeBetween returns the top-up rows in [from, to); the caller
// buckets them (weekday view).
func (r *TransactionRepository) IncomeBetween(ctx context.Context, from, to time.Time) ([]*model.Transaction, error) {
	var entities []*TransactionEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("amount > 0 AND date >= ? AND date < ?", from, to).
		Order("date ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toTransactionModels(entities), nil
}
