package dto

import "time"

type EntitlementCheckRequest struct {
	Key string `json:"key"`
}

type EntitlementCheckResponse struct {
	Entitled bool       `json:"entitled"`
	Key      string     `json:"key"`
	Since    *time.Time `json:"since,omitempty"`
}
