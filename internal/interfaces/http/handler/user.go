package handler

import (
	"github.com/gin-gonic/gin"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
	"serial-novel-api/internal/interfaces/http/dto"
	"serial-novel-api/pkg/logger"
)

// UserHandler 用户处理器
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// Create 创建用户
// @Summary 创建用户
// @Tags Users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "创建参数"
// @Success 201 {object} dto.Response[dto.UserResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user := entity.NewUser(req.UserName, req.Email)
	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error(ctx, "failed to create user", err, "user_name", req.UserName)
		dto.InternalError(c, "failed to create user")
		return
	}

	dto.Created(c, dto.ToUserResponse(user))
}

// Get 获取用户详情
// @Summary 获取用户详情
// @Tags Users
// @Produce json
// @Param uid path string true "用户 ID"
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/users/{uid} [get]
func (h *UserHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("uid")

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err, "user_id", userID)
		dto.InternalError(c, "failed to get user")
		return
	}
	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	dto.Success(c, dto.ToUserResponse(user))
}

// List 获取用户列表
// @Summary 获取用户列表
// @Tags Users
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.UserResponse]
// @Router /v1/users [get]
func (h *UserHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	pagination := dto.BindPage(c)

	result, err := h.userRepo.List(ctx, pagination)
	if err != nil {
		logger.Error(ctx, "failed to list users", err)
		dto.InternalError(c, "failed to list users")
		return
	}

	dto.SuccessWithPage(c, dto.ToUserResponses(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}
