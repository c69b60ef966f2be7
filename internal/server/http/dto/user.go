// Package dto defines the JSON shapes of the HTTP API and their
// conversions to and from service types.
package dto

import (
	"time"

	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/services"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateProfileRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	ProfileImage *string `json:"profileImage"`
}

func (r UpdateProfileRequest) ToUpdate() services.ProfileUpdate {
	return services.ProfileUpdate{
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		ProfileImage: r.ProfileImage,
	}
}

type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func ToUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResponse struct {
	TokenResponse
	User                *UserResponse `json:"user"`
	ResolvedInvitations int           `json:"resolvedInvitations"`
}

func ToLoginResponse(r *services.LoginResult) *LoginResponse {
	return &LoginResponse{
		TokenResponse:       TokenResponse{AccessToken: r.Tokens.AccessToken, RefreshToken: r.Tokens.RefreshToken},
		User:                ToUserResponse(r.User),
		ResolvedInvitations: r.Resolved,
	}
}

type IdentityResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
