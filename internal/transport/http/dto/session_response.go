package dto

import "github.com/orgnet-app/identity-service/internal/identity"

type SessionData struct {
	User identity.ResolvedProfile `json:"user"`
}

type SyncData struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	SyncedID string `json:"syncedId,omitempty"`
}
