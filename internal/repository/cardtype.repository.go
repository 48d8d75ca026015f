package repository

import (
	"context"
	"errors"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/pkg/pg"
	"gorm.io/gorm"
)

type CardTypeRepository struct {
	*pg.DB
}

func NewCardTypeRepository(db *pg.DB) *CardTypeRepository {
	return &CardTypeRepository{
		db,
	}
}

func (r *CardTypeRepository) Create(ctx context.Context, t *model.CardType) (*model.CardType, error) {
	entity := toCardTypeEntity(t)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCardTypeModel(entity), nil
}

func (r *CardTypeRepository) GetByID(ctx context.Context, id int64) (*model.CardType, error) {
	var entity CardTypeEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardTypeNotFound
		}
		return nil, err
	}

	return toCardTypeModel(&entity), nil
}

func (r *CardTypeRepository) List(ctx context.Context) ([]*model.CardType, error) {
	var entities []*CardTypeEntity

	err := r.Read(ctx).WithContext(ctx).
		Order("id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toCardTypeModels(entities), nil
}

// Delete removes a type definition. The caller is responsible for
// cascading the type reset on cards within the same transaction scope.
func (r *CardTypeRepository) Delete(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&CardTypeEntity{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardTypeNotFound
	}

	return nil
}
