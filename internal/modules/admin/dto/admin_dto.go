package dto

import "anoa.com/labeebacademy/internal/entity"

type ChangeRoleInput struct {
	Role string `json:"role" form:"role" binding:"required,oneof=student admin"`
}

type ChangeRoleResponse struct {
	Message string          `json:"message"`
	Profile *entity.Profile `json:"profile"`
}

type UserListResponse struct {
	Data []*entity.Profile `json:"data"`
}
