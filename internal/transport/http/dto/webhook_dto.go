package dto

type WebhookResponse struct {
	Received bool `json:"received"`
}
