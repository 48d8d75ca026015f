package model

import "time"

// Transaction is one immutable ledger entry. Amount is signed: positive
// for top-ups, negative for purchases/withdrawals. Bonus is recorded
// separately and is always zero for purchases.
type Transaction struct {
	ID         int64     `json:"id"          db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Barcode    string    `json:"barcode"     db:"barcode"     gorm:"column:barcode;not null;index"`
	Amount     int64     `json:"amount"      db:"amount"      gorm:"column:amount;not null"`
	Bonus      int64     `json:"bonus"       db:"bonus"       gorm:"column:bonus;not null;default:0"`
	OldBalance int64     `json:"old_balance" db:"old_balance" gorm:"column:old_balance;not null"`
	NewBalance int64     `json:"new_balance" db:"new_balance" gorm:"column:new_balance;not null"`
	Date       time.Time `json:"date"        db:"date"        gorm:"column:date;not null;index"`
}

func (Transaction) TableName() string { return "transactions_history" }

// TransactionFilter controls ledger queries.
type TransactionFilter struct {
	Barcode *string
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
	Desc    bool // newest first
}
