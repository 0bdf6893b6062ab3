package models

// User is a chat participant as exposed by /profile, /users and chat listings.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
