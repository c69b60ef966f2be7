package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/http/dto"
	"github.com/dmitrijs2005/memorylane/internal/server/http/middleware"
)

type UserHandler struct {
	users UserService
	log   logging.Logger
}

func NewUserHandler(users UserService, log logging.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// targetID resolves the :id path parameter, where "me" is the caller.
func targetID(c *gin.Context) string {
	id := c.Param("id")
	if id == "me" {
		return middleware.CurrentUserID(c)
	}
	return id
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.users.GetProfile(c.Request.Context(), middleware.CurrentUserID(c), targetID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(u))
}

func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), targetID(c), req.ToUpdate())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(u))
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.DeleteProfile(c.Request.Context(), middleware.CurrentUserID(c), targetID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
