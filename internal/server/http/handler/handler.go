// Package handler implements the HTTP endpoints. Handlers bind the request,
// call one service method and map the result or error to a response.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	GetProfile(ctx context.Context, callerID, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, callerID, userID string, upd services.ProfileUpdate) (*models.User, error)
	DeleteProfile(ctx context.Context, callerID, userID string) error
}

type CapsuleService interface {
	Create(ctx context.Context, ownerID string, in services.CreateCapsuleInput) (*models.Capsule, error)
	Get(ctx context.Context, id, viewerID string) (*services.CapsuleView, error)
	ListVisible(ctx context.Context, viewerID string) ([]services.CapsuleView, error)
	ListPublic(ctx context.Context) ([]*models.Capsule, error)
	GetPublic(ctx context.Context, id string) (*models.Capsule, error)
	Update(ctx context.Context, id, callerID string, in services.UpdateCapsuleInput) (*models.Capsule, error)
	Seal(ctx context.Context, id, callerID string) (*models.Capsule, error)
	Delete(ctx context.Context, id, callerID string) error
}

type InvitationService interface {
	Invite(ctx context.Context, capsuleID, email, inviterID string) (*services.InviteResult, error)
	ListPending(ctx context.Context, email string) ([]*models.Invitation, error)
	ListForCapsule(ctx context.Context, capsuleID, callerID string) ([]*models.Invitation, error)
}

type CommentService interface {
	List(ctx context.Context, capsuleID, viewerID string) ([]*models.Comment, error)
	Create(ctx context.Context, capsuleID, authorID, content string) (*models.Comment, error)
	Delete(ctx context.Context, capsuleID string, commentID int64, callerID string) error
}

type MediaService interface {
	PresignUpload(ctx context.Context, userID, contentType string) (*services.UploadTarget, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// respondError maps service errors to status codes. Anything unexpected is
// logged and reported as a bare 500.
func respondError(c *gin.Context, log logging.Logger, err error) {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field, "reason": verr.Reason})
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrorConflict), errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
