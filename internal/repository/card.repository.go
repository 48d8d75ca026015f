package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCardNotFound     = errors.New("card not found")
	ErrCardTypeNotFound = errors.New("card type not found")
	ErrDuplicateBarcode = errors.New("barcode already exists")
)

type CardRepository struct {
	*pg.DB
}

func NewCardRepository(db *pg.DB) *CardRepository {
	return &CardRepository{
		db,
	}
}

// Create inserts a freshly issued card. A unique-constraint hit on the
// barcode surfaces as ErrDuplicateBarcode so the caller can regenerate.
func (r *CardRepository) Create(ctx context.Context, card *model.Card) (*model.Card, error) {
	entity := toCardEntity(card)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateBarcode
		}
		return nil, err
	}

	return toCardModel(entity), nil
}

func (r *CardRepository) GetByBarcode(ctx context.Context, barcode string) (*model.Card, error) {
	var entity CardEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("barcode = ?", barcode).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	return toCardModel(&entity), nil
}

// GetForUpdate loads a card through the write handle with a row lock.
// It must run inside a WithinTransaction scope; the lock pins the row
// for the read-modify-write of a balance mutation.
func (r *CardRepository) GetForUpdate(ctx context.Context, barcode string) (*model.Card, error) {
	var entity CardEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("barcode = ?", barcode).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	return toCardModel(&entity), nil
}

// ApplyMutation writes the post-mutation card row: credit, status and
// update_date, plus the type column when typeID is non-nil (promotion
// top-ups assign the type in the same atomic unit).
func (r *CardRepository) ApplyMutation(ctx context.Context, barcode string, credit int64, status model.CardStatus, typeID *int64, now time.Time) error {
	fields := map[string]interface{}{
		"credit":      credit,
		"status":      string(status),
		"update_date": now,
	}
	if typeID != nil {
		fields["type"] = *typeID
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&CardEntity{}).
		Where("barcode = ?", barcode).
		Updates(fields)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}

	return nil
}

// Block moves a card to Blocked and clears its type. Credit is left
// untouched and no ledger row is written.
func (r *CardRepository) Block(ctx context.Context, barcode string, now time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CardEntity{}).
		Where("barcode = ?", barcode).
		Updates(map[string]interface{}{
			"status":      string(model.CardStatusBlocked),
			"type":        int64(0),
			"update_date": now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}

	return nil
}

// UpdateType changes the card-type association without touching the
// balance.
func (r *CardRepository) UpdateType(ctx context.Context, barcode string, typeID int64, now time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CardEntity{}).
		Where("barcode = ?", barcode).
		Updates(map[string]interface{}{
			"type":        typeID,
			"update_date": now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}

	return nil
}

// ResetType reverts every card referencing typeID back to "no type".
// Used as the cascade when a card type is deleted.
func (r *CardRepository) ResetType(ctx context.Context, typeID int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&CardEntity{}).
		Where("type = ?", typeID).
		Update("type", int64(0)).
		Error
}

func (r *CardRepository) List(ctx context.Context, f model.CardFilter) ([]*model.Card, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&CardEntity{})

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.TypeID != nil {
		q = q.Where("type = ?", *f.TypeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Desc {
		q = q.Order("creation_date DESC")
	} else {
		q = q.Order("creation_date ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var entities []*CardEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toCardModels(entities), total, nil
}

// CountByStatus aggregates the fleet snapshot used by the today report.
func (r *CardRepository) CountByStatus(ctx context.Context) (*model.TodayReport, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row

	err := r.Read(ctx).WithContext(ctx).
		Model(&CardEntity{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	report := &model.TodayReport{}
	for _, rw := range rows {
		report.TotalCards += rw.Count
		switch model.CardStatus(rw.Status) {
		case model.CardStatusActive:
			report.TotalActiveCards = rw.Count
		case model.CardStatusInactive:
			report.TotalInactiveCards = rw.Count
		case model.CardStatusBlocked:
			report.TotalLostCards = rw.Count
		}
	}
	return report, nil
}

// TypeDistribution counts cards per assigned type (type 0 excluded),
// joined with the type's price for labelling.
func (r *CardRepository) TypeDistribution(ctx context.Context) ([]*model.CardTypeCount, error) {
	var rows []*model.CardTypeCount

	err := r.Read(ctx).WithContext(ctx).
		Model(&CardEntity{}).
		Select(`payment_cards.type AS type_id, card_types."cardPrice" AS type_price, COUNT(*) AS count`).
		Joins("JOIN card_types ON card_types.id = payment_cards.type").
		Where("payment_cards.type > 0").
		Group(`payment_cards.type, card_types."cardPrice"`).
		Order("payment_cards.type").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ListInactiveGrouped buckets inactive cards by issuance day, newest
// day first. Feeds the new-card handout view.
func (r *CardRepository) ListInactiveGrouped(ctx context.Context) ([]*model.InactiveCardGroup, error) {
	var entities []*CardEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("status = ?", string(model.CardStatusInactive)).
		Order("creation_date DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	var groups []*model.InactiveCardGroup
	index := map[string]*model.InactiveCardGroup{}
	for _, e := range entities {
		day := e.CreatedAt.Format("2006-01-02")
		g, ok := index[day]
		if !ok {
			g = &model.InactiveCardGroup{Day: day}
			index[day] = g
			groups = append(groups, g)
		}
		g.Count++
		g.Barcodes = append(g.Barcodes, e.Barcode)
	}
	return groups, nil
}
