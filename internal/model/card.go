package model

import (
	"errors"
	"time"
)

// CardStatus is the lifecycle state of a payment card.
type CardStatus string

const (
	CardStatusInactive CardStatus = "Inactive"
	CardStatusActive   CardStatus = "Active"
	CardStatusBlocked  CardStatus = "Blocked"
)

type Card struct {
	ID      int64      `json:"id"      db:"id"      gorm:"primaryKey;autoIncrement;column:id"`
	Barcode string     `json:"barcode" db:"barcode" gorm:"column:barcode;not null;unique"`
	Status  CardStatus `json:"status"  db:"status"  gorm:"column:status;not null"`
	Credit  int64      `json:"credit"  db:"credit"  gorm:"column:credit;not null;default:0"`
	// TypeID references card_types.id; 0 means no type assigned.
	TypeID    int64     `json:"type"          db:"type"          gorm:"column:type;not null;default:0"`
	CreatedAt time.Time `json:"creation_date" db:"creation_date" gorm:"column:creation_date;autoCreateTime"`
	UpdatedAt time.Time `json:"update_date"   db:"update_date"   gorm:"column:update_date"`
}

func (Card) TableName() string { return "payment_cards" }

// TopUpRequest is the input for one balance mutation. IsTopUp selects
// between a credit (top-up) and a debit (purchase/withdrawal).
type TopUpRequest struct {
	Barcode    string
	Amount     int64
	IsTopUp    bool
	CardTypeID *int64 // promotion top-up: assign this type in the same unit
	Bonus      int64  // promotional credit on top of Amount, top-ups only
}

func (r TopUpRequest) Validate() error {
	if r.Barcode == "" {
		return errors.New("barcode is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if r.Bonus < 0 {
		return errors.New("bonus cannot be negative")
	}
	if !r.IsTopUp && r.Bonus != 0 {
		return errors.New("purchases cannot carry a bonus")
	}
	return nil
}

// MutationResult is the outcome of a successful balance mutation.
type MutationResult struct {
	NewBalance int64      `json:"new_balance"`
	NewStatus  CardStatus `json:"new_status"`
}

// CardFilter controls List queries.
type CardFilter struct {
	Statuses []CardStatus // IN (...)
	TypeID   *int64       // equals
	Limit    int          // default 50
	Offset   int          // for pagination
	Desc     bool         // order by creation_date
}
