package dto

import (
	"time"

	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/services"
)

type InviteRequest struct {
	Email string `json:"email"`
}

type InvitationResponse struct {
	ID         string     `json:"id"`
	CapsuleID  string     `json:"capsuleId"`
	Email      string     `json:"email"`
	InvitedBy  string     `json:"invitedBy"`
	Status     string     `json:"status"`
	InvitedAt  time.Time  `json:"invitedAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

func ToInvitationResponse(inv *models.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:         inv.ID,
		CapsuleID:  inv.CapsuleID,
		Email:      inv.Email,
		InvitedBy:  inv.InvitedBy,
		Status:     string(inv.Status),
		InvitedAt:  inv.InvitedAt,
		AcceptedAt: inv.AcceptedAt,
	}
}

func ToInvitationResponses(list []*models.Invitation) []InvitationResponse {
	out := make([]InvitationResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, ToInvitationResponse(inv))
	}
	return out
}

type InviteResponse struct {
	Invitation InvitationResponse `json:"invitation"`
	Created    bool               `json:"created"`
	EmailSent  bool               `json:"emailSent"`
}

func ToInviteResponse(r *services.InviteResult) *InviteResponse {
	return &InviteResponse{
		Invitation: ToInvitationResponse(r.Invitation),
		Created:    r.Created,
		EmailSent:  r.EmailSent,
	}
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type CommentResponse struct {
	ID         int64     `json:"id,string"`
	CapsuleID  string    `json:"capsuleId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ToCommentResponse(c *models.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		CapsuleID:  c.CapsuleID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
	}
}

func ToCommentResponses(list []*models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(list))
	for _, c := range list {
		out = append(out, ToCommentResponse(c))
	}
	return out
}

type UploadRequest struct {
	ContentType string `json:"contentType"`
}

type UploadResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func ToUploadResponse(t *services.UploadTarget) *UploadResponse {
	return &UploadResponse{Key: t.Key, URL: t.URL, ExpiresAt: t.ExpiresAt}
}
