//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	ga "github.com/gotmoney/gotauth"
)

// UserModel is the GORM model for users.  Email and the provider ids are
// indexed but not unique: uniqueness is checked by the auth flows.
type UserModel struct {
	ID        int64      `gorm:"column:iduser;primaryKey;autoIncrement:false"`
	Name      string     `gorm:"size:80"`
	Gender    string     `gorm:"size:1"`
	Birthdate *time.Time `gorm:"column:birthdate"`
	Email     string     `gorm:"size:60;index"`
	Passwd    string     `gorm:"size:100"`
	Alert     bool       `gorm:"default:false"`
	Active    bool       `gorm:"default:true"`
	Facebook  string     `gorm:"size:64;index"`
	Google    string     `gorm:"size:64;index"`
	CreatedOn time.Time  `gorm:"column:createdon"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() ga.User {
	return ga.User{
		ID:           m.ID,
		Name:         m.Name,
		Gender:       m.Gender,
		Birthdate:    m.Birthdate,
		Email:        m.Email,
		PasswordHash: m.Passwd,
		Alert:        m.Alert,
		Active:       m.Active,
		Facebook:     m.Facebook,
		Google:       m.Google,
		CreatedOn:    m.CreatedOn,
	}
}

func UserToModel(u ga.User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Name:      u.Name,
		Gender:    u.Gender,
		Birthdate: u.Birthdate,
		Email:     u.Email,
		Passwd:    u.PasswordHash,
		Alert:     u.Alert,
		Active:    u.Active,
		Facebook:  u.Facebook,
		Google:    u.Google,
		CreatedOn: u.CreatedOn,
	}
}

// patchColumns converts a UserPatch into an Updates map keyed by column.
func patchColumns(p ga.UserPatch) map[string]any {
	cols := make(map[string]any)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Alert != nil {
		cols["alert"] = *p.Alert
	}
	if p.PasswordHash != nil {
		cols["passwd"] = *p.PasswordHash
	}
	if p.Facebook != nil {
		cols["facebook"] = *p.Facebook
	}
	if p.Google != nil {
		cols["google"] = *p.Google
	}
	return cols
}
