package server

import (
	"signline/internal/domain"
	"signline/internal/engine"
)

type DocumentRequest struct {
	ID         string `json:"id" example:"doc-nda"`
	Name       string `json:"name,omitempty" example:"Mutual NDA"`
	ContentURL string `json:"content_url,omitempty"`
	TemplateID string `json:"template_id,omitempty" example:"tpl-nda-v2"`
	Stage      *int   `json:"stage,omitempty"`
	Sequence   *int   `json:"sequence,omitempty"`
	DependsOn  string `json:"depends_on,omitempty"`
}

type CreateSessionRequest struct {
	ID         string            `json:"id,omitempty"`
	SignerID   string            `json:"signer_id"`
	SignerName string            `json:"signer_name,omitempty"`
	Documents  []DocumentRequest `json:"documents"`
}

type CreateSessionResponse struct {
	Session  domain.Session `json:"session"`
	Degraded []string       `json:"degraded_documents,omitempty"`
}

type SessionResponse struct {
	Session         domain.Session       `json:"session"`
	Documents       []domain.Document    `json:"documents"`
	Fields          []domain.FieldState  `json:"fields"`
	Positions       map[string]PositionT `json:"positions"`
	CompletedCount  int                  `json:"completed_count"`
	RequiredCount   int                  `json:"required_count"`
	ProgressPercent int                  `json:"progress_percent"`
	ReviewReady     bool                 `json:"review_ready"`
	CurrentFieldID  string               `json:"current_field_id,omitempty"`
}

type PositionT struct {
	XPercent float64 `json:"x_percent" minimum:"0" maximum:"100"`
	YPercent float64 `json:"y_percent" minimum:"0" maximum:"100"`
}

type AdoptRequest struct {
	Method    string `json:"method" enum:"type,draw,upload"`
	Signature string `json:"signature"`
	Initials  string `json:"initials"`
	Font      string `json:"font,omitempty"`
}

type CompleteFieldRequest struct {
	Value string `json:"value,omitempty"`
}

type MoveFieldRequest struct {
	XPercent float64 `json:"x_percent"`
	YPercent float64 `json:"y_percent"`
}

type MoveFieldResponse struct {
	Committed bool `json:"committed"`
}

type CursorRequest struct {
	FieldID string `json:"field_id"`
}

type ConsentRequest struct {
	Consent bool `json:"consent"`
}

type FinishResponse struct {
	Status    string            `json:"status" enum:"complete,partial_failure"`
	Session   domain.Session    `json:"session"`
	Submitted []string          `json:"submitted,omitempty"`
	Skipped   []string          `json:"skipped,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	SessionID  string `json:"session_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

func sessionResponse(v engine.SessionView) SessionResponse {
	positions := make(map[string]PositionT, len(v.Positions))
	for id, p := range v.Positions {
		positions[id] = PositionT{XPercent: p.X, YPercent: p.Y}
	}
	return SessionResponse{
		Session:         v.Session,
		Documents:       v.Documents,
		Fields:          v.Fields,
		Positions:       positions,
		CompletedCount:  v.CompletedCount,
		RequiredCount:   v.RequiredCount,
		ProgressPercent: v.ProgressPercent,
		ReviewReady:     v.ReviewReady,
		CurrentFieldID:  v.CurrentFieldID,
	}
}

func mapEvents(items []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			SessionID:  e.SessionID,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			Payload:    e.Payload,
		})
	}
	return out
}
