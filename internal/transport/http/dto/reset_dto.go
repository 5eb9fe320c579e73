package dto

type ProgressResetRequest struct {
	UserID    string `json:"user_id"`
	ResetFrom string `json:"reset_from"`
}

type ProgressResetResponse struct {
	Success bool             `json:"success"`
	Deleted map[string]int64 `json:"deleted"`
}
