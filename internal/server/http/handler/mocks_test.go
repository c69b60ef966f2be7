package handler_test

import (
	"context"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/server/auth"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/services"
)

// stubVerifier accepts "Bearer <userID>" for any user in the map.
type stubVerifier map[string]auth.Identity

func (s stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return auth.Identity{}, common.ErrInvalidToken
	}
	return id, nil
}

type mockUserService struct {
	registerFn func(ctx context.Context, email, password, name string) (*models.User, error)
	loginFn    func(ctx context.Context, email, password string) (*services.LoginResult, error)
	refreshFn  func(ctx context.Context, token string) (*services.TokenPair, error)
	getFn      func(ctx context.Context, callerID, userID string) (*models.User, error)
	updateFn   func(ctx context.Context, callerID, userID string, upd services.ProfileUpdate) (*models.User, error)
	deleteFn   func(ctx context.Context, callerID, userID string) error
}

func (m *mockUserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	return m.registerFn(ctx, email, password, name)
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockUserService) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	return m.refreshFn(ctx, token)
}

func (m *mockUserService) GetProfile(ctx context.Context, callerID, userID string) (*models.User, error) {
	return m.getFn(ctx, callerID, userID)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, callerID, userID string, upd services.ProfileUpdate) (*models.User, error) {
	return m.updateFn(ctx, callerID, userID, upd)
}

func (m *mockUserService) DeleteProfile(ctx context.Context, callerID, userID string) error {
	return m.deleteFn(ctx, callerID, userID)
}

type mockCapsuleService struct {
	createFn     func(ctx context.Context, ownerID string, in services.CreateCapsuleInput) (*models.Capsule, error)
	getFn        func(ctx context.Context, id, viewerID string) (*services.CapsuleView, error)
	listFn       func(ctx context.Context, viewerID string) ([]services.CapsuleView, error)
	listPublicFn func(ctx context.Context) ([]*models.Capsule, error)
	getPublicFn  func(ctx context.Context, id string) (*models.Capsule, error)
	updateFn     func(ctx context.Context, id, callerID string, in services.UpdateCapsuleInput) (*models.Capsule, error)
	sealFn       func(ctx context.Context, id, callerID string) (*models.Capsule, error)
	deleteFn     func(ctx context.Context, id, callerID string) error
}

func (m *mockCapsuleService) Create(ctx context.Context, ownerID string, in services.CreateCapsuleInput) (*models.Capsule, error) {
	return m.createFn(ctx, ownerID, in)
}

func (m *mockCapsuleService) Get(ctx context.Context, id, viewerID string) (*services.CapsuleView, error) {
	return m.getFn(ctx, id, viewerID)
}

func (m *mockCapsuleService) ListVisible(ctx context.Context, viewerID string) ([]services.CapsuleView, error) {
	return m.listFn(ctx, viewerID)
}

func (m *mockCapsuleService) ListPublic(ctx context.Context) ([]*models.Capsule, error) {
	return m.listPublicFn(ctx)
}

func (m *mockCapsuleService) GetPublic(ctx context.Context, id string) (*models.Capsule, error) {
	return m.getPublicFn(ctx, id)
}

func (m *mockCapsuleService) Update(ctx context.Context, id, callerID string, in services.UpdateCapsuleInput) (*models.Capsule, error) {
	return m.updateFn(ctx, id, callerID, in)
}

func (m *mockCapsuleService) Seal(ctx context.Context, id, callerID string) (*models.Capsule, error) {
	return m.sealFn(ctx, id, callerID)
}

func (m *mockCapsuleService) Delete(ctx context.Context, id, callerID string) error {
	return m.deleteFn(ctx, id, callerID)
}

type mockInvitationService struct {
	inviteFn     func(ctx context.Context, capsuleID, email, inviterID string) (*services.InviteResult, error)
	pendingFn    func(ctx context.Context, email string) ([]*models.Invitation, error)
	forCapsuleFn func(ctx context.Context, capsuleID, callerID string) ([]*models.Invitation, error)
}

func (m *mockInvitationService) Invite(ctx context.Context, capsuleID, email, inviterID string) (*services.InviteResult, error) {
	return m.inviteFn(ctx, capsuleID, email, inviterID)
}

func (m *mockInvitationService) ListPending(ctx context.Context, email string) ([]*models.Invitation, error) {
	return m.pendingFn(ctx, email)
}

func (m *mockInvitationService) ListForCapsule(ctx context.Context, capsuleID, callerID string) ([]*models.Invitation, error) {
	return m.forCapsuleFn(ctx, capsuleID, callerID)
}

type mockCommentService struct {
	listFn   func(ctx context.Context, capsuleID, viewerID string) ([]*models.Comment, error)
	createFn func(ctx context.Context, capsuleID, authorID, content string) (*models.Comment, error)
	deleteFn func(ctx context.Context, capsuleID string, commentID int64, callerID string) error
}

func (m *mockCommentService) List(ctx context.Context, capsuleID, viewerID string) ([]*models.Comment, error) {
	return m.listFn(ctx, capsuleID, viewerID)
}

func (m *mockCommentService) Create(ctx context.Context, capsuleID, authorID, content string) (*models.Comment, error) {
	return m.createFn(ctx, capsuleID, authorID, content)
}

func (m *mockCommentService) Delete(ctx context.Context, capsuleID string, commentID int64, callerID string) error {
	return m.deleteFn(ctx, capsuleID, commentID, callerID)
}

type mockMediaService struct {
	uploadFn   func(ctx context.Context, userID, contentType string) (*services.UploadTarget, error)
	downloadFn func(ctx context.Context, key string) (string, error)
}

func (m *mockMediaService) PresignUpload(ctx context.Context, userID, contentType string) (*services.UploadTarget, error) {
	return m.uploadFn(ctx, userID, contentType)
}

func (m *mockMediaService) PresignDownload(ctx context.Context, key string) (string, error) {
	return m.downloadFn(ctx, key)
}
