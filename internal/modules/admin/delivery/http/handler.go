package handler

import (
	"net/http"

	"anoa.com/labeebacademy/internal/modules/admin/dto"
	adminService "anoa.com/labeebacademy/internal/modules/admin/service"
	"anoa.com/labeebacademy/pkg/apperror"
	"anoa.com/labeebacademy/pkg/response"
	"anoa.com/labeebacademy/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminService adminService.AdminService
}

func NewAdminHandler(adminService adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	res, err := h.adminService.ListProfiles(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserListResponse{Data: res})
}

func (h *AdminHandler) ChangeRole(c *gin.Context) {
	var input dto.ChangeRoleInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to update role: " + validator.FormatValidationError(err)})
		return
	}

	res, err := h.adminService.ChangeRole(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.ResponseError(c, apperror.New(apperror.MapErrorToStatus(err), "Failed to update role: "+err.Error(), err))
		return
	}

	c.JSON(http.StatusOK, res)
}
