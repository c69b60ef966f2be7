package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/http/dto"
	"github.com/dmitrijs2005/memorylane/internal/server/http/middleware"
)

type InvitationHandler struct {
	invitations InvitationService
	log         logging.Logger
}

func NewInvitationHandler(invitations InvitationService, log logging.Logger) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, log: log}
}

// Create invites one email address. Re-inviting the same address returns
// the existing invitation with 200 instead of 201.
func (h *InvitationHandler) Create(c *gin.Context) {
	var req dto.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	res, err := h.invitations.Invite(c.Request.Context(), c.Param("id"), req.Email, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	c.JSON(code, dto.ToInviteResponse(res))
}

func (h *InvitationHandler) ListForCapsule(c *gin.Context) {
	list, err := h.invitations.ListForCapsule(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": dto.ToInvitationResponses(list)})
}

// ListPending lists the caller's own pending invitations, matched by the
// email in the access token.
func (h *InvitationHandler) ListPending(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	list, err := h.invitations.ListPending(c.Request.Context(), id.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": dto.ToInvitationResponses(list)})
}

type CommentHandler struct {
	comments CommentService
	log      logging.Logger
}

func NewCommentHandler(comments CommentService, log logging.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, log: log}
}

func (h *CommentHandler) List(c *gin.Context) {
	list, err := h.comments.List(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": dto.ToCommentResponses(list)})
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCommentResponse(comment))
}

func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, err := strconv.ParseInt(c.Param("commentId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.comments.Delete(c.Request.Context(), c.Param("id"), commentID, middleware.CurrentUserID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type MediaHandler struct {
	media MediaService
	log   logging.Logger
}

func NewMediaHandler(media MediaService, log logging.Logger) *MediaHandler {
	return &MediaHandler{media: media, log: log}
}

// CreateUpload returns a presigned PUT target for one blob. The body is
// optional.
func (h *MediaHandler) CreateUpload(c *gin.Context) {
	var req dto.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c)
		return
	}

	target, err := h.media.PresignUpload(c.Request.Context(), middleware.CurrentUserID(c), req.ContentType)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToUploadResponse(target))
}

func (h *MediaHandler) DownloadURL(c *gin.Context) {
	url, err := h.media.PresignDownload(c.Request.Context(), c.Query("key"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
