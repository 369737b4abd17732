// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User 用户实体，仅作为小说归属引用，不承载认证逻辑
type User struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserName  string    `json:"user_name,omitempty" gorm:"type:varchar(80)"`
	Email     string    `json:"email,omitempty" gorm:"type:varchar(120)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// NewUser 创建新用户
func NewUser(userName, email string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.NewString(),
		UserName:  userName,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
