package repository

import (
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
)

type TransactionEntity struct {
	ID         int64     `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Barcode    string    `db:"barcode"     gorm:"column:barcode;not null;index"`
	Amount     int64     `db:"amount"      gorm:"column:amount;not null"`
	Bonus      int64     `db:"bonus"       gorm:"column:bonus;not null;default:0"`
	OldBalance int64     `db:"old_balance" gorm:"column:old_balance;not null"`
	NewBalance int64     `db:"new_balance" gorm:"column:new_balance;not null"`
	Date       time.Time `db:"date"        gorm:"column:date;not null;index"`
}

func (TransactionEntity) TableName() string {
	return "transactions_history"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:         m.ID,
		Barcode:    m.Barcode,
		Amount:     m.Amount,
		Bonus:      m.Bonus,
		OldBalance: m.OldBalance,
		NewBalance: m.NewBalance,
		Date:       m.Date,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:         e.ID,
		Barcode:    e.Barcode,
		Amount:     e.Amount,
		Bonus:      e.Bonus,
		OldBalance: e.OldBalance,
		NewBalance: e.NewBalance,
		Date:       e.Date,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
