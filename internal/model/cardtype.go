package model

// CardType is a purchasable promotion: the customer pays Price and the
// card is credited BonusCredit (Price plus the promotional bonus).
type CardType struct {
	ID          int64 `json:"id"         db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Price       int64 `json:"cardPrice"  db:"cardPrice"  gorm:"column:cardPrice;not null"`
	BonusCredit int64 `json:"cardCredit" db:"cardCredit" gorm:"column:cardCredit;not null"`
}

func (CardType) TableName() string { return "card_types" }

// Bonus is the promotional part of a promotion top-up.
func (t CardType) Bonus() int64 { return t.BonusCredit - t.Price }
