package dto

type GenerateRequest struct {
	AccountID string `json:"account_id"`
	Range     string `json:"range"`
	Days      int    `json:"days"`
	Force     bool   `json:"force"`
}

type NotifyRequest struct {
	DigestID string `json:"digest_id" binding:"required"`
	Channel  string `json:"channel" binding:"required"`
}
