// Package router assembles the gin engine: middleware, then one route group
// per resource.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/http/handler"
	"github.com/dmitrijs2005/memorylane/internal/server/http/middleware"
)

// UserAPI is the account service; it also verifies access tokens.
type UserAPI interface {
	handler.UserService
	middleware.TokenVerifier
}

// Services are the dependencies behind the HTTP API.
type Services struct {
	Users       UserAPI
	Capsules    handler.CapsuleService
	Invitations handler.InvitationService
	Comments    handler.CommentService
	Media       handler.MediaService
	DB          handler.Pinger
}

// New returns an engine with every route registered.
func New(svc Services, log logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logger(log))
	SetupRoutes(r, svc, log)
	return r
}

func SetupRoutes(r *gin.Engine, svc Services, log logging.Logger) {
	log = log.With("module", "http")

	requireAuth := middleware.RequireAuth(svc.Users)
	optionalAuth := middleware.OptionalAuth(svc.Users)

	r.GET("/health", handler.NewHealthHandler(svc.DB, log).Health)

	authHandler := handler.NewAuthHandler(svc.Users, log)
	AuthRouter(r.Group("/auth"), authHandler, requireAuth)

	v1 := r.Group("/api/v1")
	{
		UserRouter(v1.Group("/users", requireAuth), handler.NewUserHandler(svc.Users, log))

		CapsuleRouter(v1.Group("/capsules"),
			handler.NewCapsuleHandler(svc.Capsules, log),
			handler.NewInvitationHandler(svc.Invitations, log),
			handler.NewCommentHandler(svc.Comments, log),
			requireAuth, optionalAuth)

		PublicRouter(v1.Group("/public"), handler.NewCapsuleHandler(svc.Capsules, log))

		v1.GET("/invitations/pending", requireAuth, handler.NewInvitationHandler(svc.Invitations, log).ListPending)

		MediaRouter(v1.Group("/media", requireAuth), handler.NewMediaHandler(svc.Media, log))
	}
}

func AuthRouter(rg *gin.RouterGroup, h *handler.AuthHandler, requireAuth gin.HandlerFunc) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/refresh", h.Refresh)
	rg.GET("/verify", requireAuth, h.Verify)
}

// UserRouter serves /users/:id where :id may be "me".
func UserRouter(rg *gin.RouterGroup, h *handler.UserHandler) {
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// CapsuleRouter registers capsule, invitation and comment routes. Reads go
// through optional auth so anonymous visitors can open public capsules.
func CapsuleRouter(rg *gin.RouterGroup, capsules *handler.CapsuleHandler, invitations *handler.InvitationHandler,
	comments *handler.CommentHandler, requireAuth, optionalAuth gin.HandlerFunc) {
	rg.GET("", requireAuth, capsules.List)
	rg.POST("", requireAuth, capsules.Create)
	rg.GET("/:id", optionalAuth, capsules.Get)
	rg.PATCH("/:id", requireAuth, capsules.Update)
	rg.DELETE("/:id", requireAuth, capsules.Delete)
	rg.POST("/:id/seal", requireAuth, capsules.Seal)

	rg.GET("/:id/invitations", requireAuth, invitations.ListForCapsule)
	rg.POST("/:id/invitations", requireAuth, invitations.Create)

	rg.GET("/:id/comments", optionalAuth, comments.List)
	rg.POST("/:id/comments", requireAuth, comments.Create)
	rg.DELETE("/:id/comments/:commentId", requireAuth, comments.Delete)
}

func PublicRouter(rg *gin.RouterGroup, h *handler.CapsuleHandler) {
	rg.GET("/capsules", h.ListPublic)
	rg.GET("/capsules/:id", h.GetPublic)
}

func MediaRouter(rg *gin.RouterGroup, h *handler.MediaHandler) {
	rg.POST("/uploads", h.CreateUpload)
	rg.GET("/url", h.DownloadURL)
}
