package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Link maps a short code to its target. When CustomPath is set it is also the
// ShortLink.
type Link struct {
	ID         int64     `json:"id"`
	LongLink   string    `json:"long_link"`
	ShortLink  string    `json:"short_link"`
	CustomPath string    `json:"custom_path,omitempty"`
	Clicks     int64     `json:"clicks"`
	CreatedAt  time.Time `json:"created_at"`
	QRCodePath string    `json:"qr_code_path,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
}

type SubmitRequest struct {
	LongURL    string `validate:"required,max=2048" label:"long url"`
	CustomPath string `validate:"omitempty,max=50,slug" label:"custom path"`
	OwnerID    int64  `validate:"required,gt=0" label:"owner"`
}

type RegisterRequest struct {
	Username string `validate:"required,max=50"`
	Email    string `validate:"required,email,max=80"`
	Password string `validate:"required,min=6,max=72"`
}

type ShortenRequest struct {
	URL        string `json:"url"`
	CustomPath string `json:"custom_path,omitempty"`
}

type ShortenResponse struct {
	Result string `json:"result"`
}

type UserURL struct {
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

type DeleteRequest []string
