package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/http/dto"
	"github.com/dmitrijs2005/memorylane/internal/server/http/middleware"
)

type CapsuleHandler struct {
	capsules CapsuleService
	log      logging.Logger
}

func NewCapsuleHandler(capsules CapsuleService, log logging.Logger) *CapsuleHandler {
	return &CapsuleHandler{capsules: capsules, log: log}
}

func (h *CapsuleHandler) Create(c *gin.Context) {
	var req dto.CreateCapsuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	uid := middleware.CurrentUserID(c)
	capsule, err := h.capsules.Create(c.Request.Context(), uid, req.ToInput())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCapsuleResponse(capsule, uid))
}

// Get works for anonymous callers too; what they see is decided by the
// service.
func (h *CapsuleHandler) Get(c *gin.Context) {
	uid := middleware.CurrentUserID(c)
	view, err := h.capsules.Get(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToViewResponse(*view, uid))
}

func (h *CapsuleHandler) List(c *gin.Context) {
	uid := middleware.CurrentUserID(c)
	views, err := h.capsules.ListVisible(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"capsules": dto.ToViewResponses(views, uid)})
}

func (h *CapsuleHandler) Update(c *gin.Context) {
	var req dto.UpdateCapsuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	uid := middleware.CurrentUserID(c)
	capsule, err := h.capsules.Update(c.Request.Context(), c.Param("id"), uid, req.ToInput())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCapsuleResponse(capsule, uid))
}

func (h *CapsuleHandler) Seal(c *gin.Context) {
	uid := middleware.CurrentUserID(c)
	capsule, err := h.capsules.Seal(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCapsuleResponse(capsule, uid))
}

func (h *CapsuleHandler) Delete(c *gin.Context) {
	if err := h.capsules.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CapsuleHandler) ListPublic(c *gin.Context) {
	list, err := h.capsules.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]*dto.CapsuleResponse, 0, len(list))
	for _, capsule := range list {
		out = append(out, dto.ToCapsuleResponse(capsule, ""))
	}
	c.JSON(http.StatusOK, gin.H{"capsules": out})
}

func (h *CapsuleHandler) GetPublic(c *gin.Context) {
	capsule, err := h.capsules.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCapsuleResponse(capsule, ""))
}
