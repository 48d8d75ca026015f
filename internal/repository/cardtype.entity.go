package repository

import (
	"github.com/rapidopay/card-gateway/internal/model"
)

type CardTypeEntity struct {
	ID          int64 `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Price       int64 `db:"cardPrice"  gorm:"column:cardPrice;not null"`
	BonusCredit int64 `db:"cardCredit" gorm:"column:cardCredit;not null"`
}

func (CardTypeEntity) TableName() string {
	return "card_types"
}

func toCardTypeEntity(m *model.CardType) *CardTypeEntity {
	if m == nil {
		return nil
	}
	return &CardTypeEntity{
		ID:          m.ID,
		Price:       m.Price,
		BonusCredit: m.BonusCredit,
	}
}

func toCardTypeModel(e *CardTypeEntity) *model.CardType {
	if e == nil {
		return nil
	}
	return &model.CardType{
		ID:          e.ID,
		Price:       e.Price,
		BonusCredit: e.BonusCredit,
	}
}

func toCardTypeModels(entities []*CardTypeEntity) []*model.CardType {
	if entities == nil {
		return nil
	}
	models := make([]*model.CardType, len(entities))
	for i, e := range entities {
		models[i] = toCardTypeModel(e)
	}
	return models
}
