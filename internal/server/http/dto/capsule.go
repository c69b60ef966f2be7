package dto

import (
	"time"

	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/services"
)

type ItemRequest struct {
	Kind        string            `json:"kind"`
	Content     string            `json:"content"`
	Description string            `json:"description,omitempty"`
	Style       map[string]string `json:"style,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

type CreateCapsuleRequest struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Image           string        `json:"image"`
	BackgroundMusic string        `json:"backgroundMusic"`
	UnlockedDate    time.Time     `json:"unlockedDate"`
	IsPublic        bool          `json:"isPublic"`
	IsLocked        bool          `json:"isLocked"`
	Items           []ItemRequest `json:"items"`
	Emails          []string      `json:"emails"`
}

func (r CreateCapsuleRequest) ToInput() services.CreateCapsuleInput {
	return services.CreateCapsuleInput{
		Title:           r.Title,
		Description:     r.Description,
		Image:           r.Image,
		BackgroundMusic: r.BackgroundMusic,
		UnlockedDate:    r.UnlockedDate,
		IsPublic:        r.IsPublic,
		IsLocked:        r.IsLocked,
		Items:           toItemInputs(r.Items),
		Emails:          r.Emails,
	}
}

// UpdateCapsuleRequest is a partial update: absent fields stay unchanged.
type UpdateCapsuleRequest struct {
	Title           *string        `json:"title"`
	Description     *string        `json:"description"`
	Image           *string        `json:"image"`
	BackgroundMusic *string        `json:"backgroundMusic"`
	UnlockedDate    *time.Time     `json:"unlockedDate"`
	IsPublic        *bool          `json:"isPublic"`
	IsLocked        *bool          `json:"isLocked"`
	Items           *[]ItemRequest `json:"items"`
	Emails          *[]string      `json:"emails"`
	Participants    *[]string      `json:"participants"`
}

func (r UpdateCapsuleRequest) ToInput() services.UpdateCapsuleInput {
	in := services.UpdateCapsuleInput{
		Title:           r.Title,
		Description:     r.Description,
		Image:           r.Image,
		BackgroundMusic: r.BackgroundMusic,
		UnlockedDate:    r.UnlockedDate,
		IsPublic:        r.IsPublic,
		IsLocked:        r.IsLocked,
		Emails:          r.Emails,
		Participants:    r.Participants,
	}
	if r.Items != nil {
		items := toItemInputs(*r.Items)
		in.Items = &items
	}
	return in
}

func toItemInputs(in []ItemRequest) []services.ItemInput {
	out := make([]services.ItemInput, 0, len(in))
	for _, it := range in {
		out = append(out, services.ItemInput{
			Kind:        models.ItemKind(it.Kind),
			Content:     it.Content,
			Description: it.Description,
			Style:       it.Style,
			Metadata:    it.Metadata,
		})
	}
	return out
}

type ItemResponse struct {
	ID          string            `json:"id"`
	Position    int               `json:"position"`
	Kind        string            `json:"kind"`
	Content     string            `json:"content"`
	Description string            `json:"description,omitempty"`
	Style       map[string]string `json:"style,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

type CapsuleResponse struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"ownerId"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Image           string         `json:"image,omitempty"`
	BackgroundMusic string         `json:"backgroundMusic,omitempty"`
	IsPublic        bool           `json:"isPublic"`
	IsLocked        bool           `json:"isLocked"`
	UnlockedDate    time.Time      `json:"unlockedDate"`
	Items           []ItemResponse `json:"items"`
	Participants    []string       `json:"participants"`
	Emails          []string       `json:"emails,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// RedactedCapsuleResponse tells the viewer a capsule exists and when it
// opens, nothing more.
type RedactedCapsuleResponse struct {
	ID           string    `json:"id"`
	IsLocked     bool      `json:"isLocked"`
	UnlockedDate time.Time `json:"unlockedDate"`
	Redacted     bool      `json:"redacted"`
}

// ToCapsuleResponse converts c for viewerID. Invited email addresses are
// shown to the owner only.
func ToCapsuleResponse(c *models.Capsule, viewerID string) *CapsuleResponse {
	items := make([]ItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, ItemResponse{
			ID:          it.ID,
			Position:    it.Position,
			Kind:        string(it.Kind),
			Content:     it.Content,
			Description: it.Description,
			Style:       it.Style,
			Metadata:    it.Metadata,
		})
	}
	participants := c.Participants
	if participants == nil {
		participants = []string{}
	}
	resp := &CapsuleResponse{
		ID:              c.ID,
		OwnerID:         c.OwnerID,
		Title:           c.Title,
		Description:     c.Description,
		Image:           c.Image,
		BackgroundMusic: c.BackgroundMusic,
		IsPublic:        c.IsPublic,
		IsLocked:        c.IsLocked,
		UnlockedDate:    c.UnlockedDate,
		Items:           items,
		Participants:    participants,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if viewerID != "" && viewerID == c.OwnerID {
		resp.Emails = c.Emails
	}
	return resp
}

func ToRedactedResponse(r *models.RedactedCapsule) *RedactedCapsuleResponse {
	return &RedactedCapsuleResponse{ID: r.ID, IsLocked: r.IsLocked, UnlockedDate: r.UnlockedDate, Redacted: true}
}

// ToViewResponse renders whichever projection v carries.
func ToViewResponse(v services.CapsuleView, viewerID string) any {
	if v.Full != nil {
		return ToCapsuleResponse(v.Full, viewerID)
	}
	return ToRedactedResponse(v.Redacted)
}

func ToViewResponses(views []services.CapsuleView, viewerID string) []any {
	out := make([]any, 0, len(views))
	for _, v := range views {
		out = append(out, ToViewResponse(v, viewerID))
	}
	return out
}
