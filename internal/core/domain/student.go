package domain

import "time"

type Student struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	StudentID    string    `json:"student_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type Registration struct {
	Email     string
	Password  string
	FullName  string
	StudentID string
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
