package repository

import (
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
)

type AccountEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `db:"name"       gorm:"column:name;not null"`
	Phone     string    `db:"phone"      gorm:"column:phone;not null;unique"`
	Password  string    `db:"password"   gorm:"column:password;not null"`
	Role      string    `db:"role"       gorm:"column:role;not null"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (AccountEntity) TableName() string {
	return "accounts"
}

func toAccountEntity(m *model.Account) *AccountEntity {
	if m == nil {
		return nil
	}
	return &AccountEntity{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Password:  m.Password,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
	}
}

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:        e.ID,
		Name:      e.Name,
		Phone:     e.Phone,
		Password:  e.Password,
		Role:      model.AccountRole(e.Role),
		CreatedAt: e.CreatedAt,
	}
}

func toAccountModels(entities []*AccountEntity) []*model.Account {
	if entities == nil {
		return nil
	}
	models := make([]*model.Account, len(entities))
	for i, e := range entities {
		models[i] = toAccountModel(e)
	}
	return models
}
