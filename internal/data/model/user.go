package model

import "strings"

type User struct {
	BaseModel
	Username     string `gorm:"column:username;size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null"`
	// Roles 逗号分隔
	Roles       string `gorm:"column:roles;size:255"`
	IsAvailable *bool  `gorm:"column:is_available;default:true"`
}

func (User) TableName() string { return "users" }

func (u *User) RoleList() []string {
	if u.Roles == "" {
		return nil
	}
	parts := strings.Split(u.Roles, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

func (u *User) Available() bool {
	return u.IsAvailable != nil && *u.IsAvailable
}
