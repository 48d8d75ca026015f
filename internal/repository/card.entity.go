package repository

import (
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
)

type CardEntity struct {
	ID        int64     `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Barcode   string    `db:"barcode"       gorm:"column:barcode;not null;unique"`
	Status    string    `db:"status"        gorm:"column:status;not null"`
	Credit    int64     `db:"credit"        gorm:"column:credit;not null;default:0"`
	TypeID    int64     `db:"type"          gorm:"column:type;not null;default:0"`
	CreatedAt time.Time `db:"creation_date" gorm:"column:creation_date;autoCreateTime"`
	UpdatedAt time.Time `db:"update_date"   gorm:"column:update_date"`
}

func (CardEntity) TableName() string {
	return "payment_cards"
}

func toCardEntity(m *model.Card) *CardEntity {
	if m == nil {
		return nil
	}
	return &CardEntity{
		ID:        m.ID,
		Barcode:   m.Barcode,
		Status:    string(m.Status),
		Credit:    m.Credit,
		TypeID:    m.TypeID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toCardModel(e *CardEntity) *model.Card {
	if e == nil {
		return nil
	}
	return &model.Card{
		ID:        e.ID,
		Barcode:   e.Barcode,
		Status:    model.CardStatus(e.Status),
		Credit:    e.Credit,
		TypeID:    e.TypeID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toCardModels(entities []*CardEntity) []*model.Card {
	if entities == nil {
		return nil
	}
	models := make([]*model.Card, len(entities))
	for i, e := range entities {
		models[i] = toCardModel(e)
	}
	return models
}
