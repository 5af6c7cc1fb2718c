package model

import "time"

// Session is a browser session holding a sealed backend token.
type Session struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	SealedToken []byte    `json:"-"`
	Identity    Identity  `json:"identity"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}
