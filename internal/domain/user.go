package domain

// User is a local operator account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// UserInput is the insert payload for a local account.
type UserInput struct {
	Username     string
	PasswordHash string
}
