package models

import "time"

// BotAccount pairs a Telegram bot token with an OpenAI API key
type BotAccount struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Token        string    `db:"token" json:"-"`
	OpenAIAPIKey string    `db:"openai_api_key" json:"-"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Credentials is the pair the polling engine connects with
type Credentials struct {
	Token        string
	OpenAIAPIKey string
}
