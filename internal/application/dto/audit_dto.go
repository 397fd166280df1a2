package dto

import (
	"time"

	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// ActivityLogResponse registro de auditoría.
type ActivityLogResponse struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	Action             string         `json:"action"`
	Details            map[string]any `json:"details,omitempty"`
	TargetUserID       *string        `json:"target_user_id,omitempty"`
	TargetResourceID   *string        `json:"target_resource_id,omitempty"`
	TargetResourceType *string        `json:"target_resource_type,omitempty"`
	IPAddress          string         `json:"ip_address,omitempty"`
	UserAgent          string         `json:"user_agent,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// ActivityLogsFromEntities mapea el rastro completo preservando el orden.
func ActivityLogsFromEntities(logs []*entity.ActivityLog) []ActivityLogResponse {
	out := make([]ActivityLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, ActivityLogResponse{
			ID:                 l.ID,
			UserID:             l.UserID,
			Action:             l.Action,
			Details:            l.Details,
			TargetUserID:       l.TargetUserID,
			TargetResourceID:   l.TargetResourceID,
			TargetResourceType: l.TargetResourceType,
			IPAddress:          l.IPAddress,
			UserAgent:          l.UserAgent,
			CreatedAt:          l.CreatedAt,
		})
	}
	return out
}
