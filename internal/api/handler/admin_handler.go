package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/librarium/library-system/internal/api/middleware"
	"github.com/librarium/library-system/internal/core/ports"
)

// AdminHandler handles role administration. All routes are gated to ADMIN by
// the authorization policy.
type AdminHandler struct {
	service ports.AdminService
}

func NewAdminHandler(service ports.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// UpdateRole handles PUT /admin/users/:email/role.
//
// @Summary      Update a user's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        email  path      string             true  "Email of the user to update"
// @Param        body   body      updateRoleRequest  true  "New role"
// @Success      200    {object}  domain.User
// @Failure      403    {object}  map[string]any
// @Failure      404    {object}  map[string]any
// @Failure      422    {object}  map[string]any
// @Router       /admin/users/{email}/role [put]
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actor, _ := middleware.IdentityFrom(c)
	user, err := h.service.UpdateUserRole(c.Request().Context(), actor.Username, c.Param("email"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// SetEnabled handles PUT /admin/users/:email/enabled. Disabling an account
// does not revoke tokens issued before the change.
//
// @Summary      Enable or disable a user account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        email  path      string             true  "Email of the user to update"
// @Param        body   body      setEnabledRequest  true  "Enabled flag"
// @Success      200    {object}  domain.User
// @Failure      403    {object}  map[string]any
// @Failure      404    {object}  map[string]any
// @Router       /admin/users/{email}/enabled [put]
func (h *AdminHandler) SetEnabled(c echo.Context) error {
	var req setEnabledRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actor, _ := middleware.IdentityFrom(c)
	user, err := h.service.SetUserEnabled(c.Request().Context(), actor.Username, c.Param("email"), *req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
