package domain

import "github.com/google/uuid"

type AuthInfo struct {
	ClientID uuid.UUID `json:"client_id"`
}
