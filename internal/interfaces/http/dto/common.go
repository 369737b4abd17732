package dto

import (
	"time"

	"github.com/gin-gonic/gin"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
)

// PageQuery 分页查询参数
type PageQuery struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20"`
}

// BindPage 从查询参数解析分页
func BindPage(c *gin.Context) repository.Pagination {
	var q PageQuery
	_ = c.ShouldBindQuery(&q)
	return repository.NewPagination(q.Page, q.PageSize)
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	UserName string `json:"user_name" binding:"required,max=80"`
	Email    string `json:"email" binding:"omitempty,email,max=120"`
}

// UserResponse 用户响应
type UserResponse struct {
	ID        string    `json:"id"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUserResponse 转换用户实体
func ToUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// ToUserResponses 转换用户实体列表
func ToUserResponses(users []*entity.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserResponse(u))
	}
	return out
}

// LookupItem 参照表条目
type LookupItem struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ToGenreItems 转换体裁清单
func ToGenreItems(genres []entity.Genre) []LookupItem {
	out := make([]LookupItem, 0, len(genres))
	for _, g := range genres {
		out = append(out, LookupItem{Code: g.Code, Name: g.Name})
	}
	return out
}

// ToMoodItems 转换氛围清单
func ToMoodItems(moods []entity.Mood) []LookupItem {
	out := make([]LookupItem, 0, len(moods))
	for _, m := range moods {
		out = append(out, LookupItem{Code: m.Code, Name: m.Name})
	}
	return out
}
