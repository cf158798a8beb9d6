package model

import (
	"time"

	"github.com/google/uuid"
)

// Role 使用者角色
type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleParticipant || r == RoleAdmin
}

// User 使用者模型
type User struct {
	ID           int       `json:"-" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Summary 只保留對外公開的欄位（owner / participants 顯示用）
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		UserID:    u.UserID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

type UserSummary struct {
	UserID    uuid.UUID `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

// RegisterUserRequest 註冊請求
type RegisterUserRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
}

// LoginRequest 登入請求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileParams 個人資料更新，nil 代表不變更
type UpdateProfileParams struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}
