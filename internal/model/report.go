package model

// TodayReport is the live snapshot of the card fleet by status.
type TodayReport struct {
	TotalCards         int64 `json:"total_cards"`
	TotalActiveCards   int64 `json:"total_active_cards"`
	TotalInactiveCards int64 `json:"total_inactive_cards"`
	TotalLostCards     int64 `json:"total_lost_cards"`
}

// Analytics holds whole-history totals derived from the ledger.
type Analytics struct {
	TotalIncome          int64 `json:"totalIncome"`
	TotalPurchases       int64 `json:"totalPurchases"`
	AvgTopUpAmount       int64 `json:"avgTopUpAmount"`
	AvgDailyTransactions int64 `json:"avgDailyTransactions"`
}

// WeekdayIncome is one bucket of the Sunday-anchored weekly income view.
type WeekdayIncome struct {
	Weekday int   `json:"weekday"` // 0 = Sunday .. 6 = Saturday
	Income  int64 `json:"income"`
}

// CardTypeCount is one slice of the card-type distribution, labelled by
// the type's price.
type CardTypeCount struct {
	TypeID    int64 `json:"type_id"`
	TypePrice int64 `json:"type_price"`
	Count     int64 `json:"count"`
}

// InactiveCardGroup buckets inactive cards by issuance day.
type InactiveCardGroup struct {
	Day      string   `json:"day"` // YYYY-MM-DD
	Count    int64    `json:"count"`
	Barcodes []string `json:"barcodes"`
}
