package model

import (
	"errors"
	"time"
)

type AccountRole string

const (
	AccountRoleAdmin   AccountRole = "admin"
	AccountRoleCashier AccountRole = "cashier"
)

// Account is a store member who can sign in to a terminal.
type Account struct {
	ID        int64       `json:"id"         db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name      string      `json:"name"       db:"name"       gorm:"column:name;not null"`
	Phone     string      `json:"phone"      db:"phone"      gorm:"column:phone;not null;unique"`
	Password  string      `json:"-"          db:"password"   gorm:"column:password;not null"`
	Role      AccountRole `json:"role"       db:"role"       gorm:"column:role;not null"`
	CreatedAt time.Time   `json:"created_at" db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Account) TableName() string { return "accounts" }

// AccountCreateRequest is the input for adding a member.
type AccountCreateRequest struct {
	Name     string
	Phone    string
	Password string
	Role     AccountRole
}

func (p AccountCreateRequest) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Phone == "" {
		return errors.New("phone is required")
	}
	if p.Password == "" {
		return errors.New("password is required")
	}
	if p.Role != AccountRoleAdmin && p.Role != AccountRoleCashier {
		return errors.New("role must be admin or cashier")
	}
	return nil
}
