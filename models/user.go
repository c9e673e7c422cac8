package models

// User holds a portal account as stored in the users collection/table
type User struct {
	ID           string `json:"id" bson:"_id"`
	Email        string `json:"email" bson:"email"`
	Name         string `json:"name" bson:"name"`
	PasswordHash string `json:"-" bson:"passwordHash"`
	Role         Role   `json:"role" bson:"role"`
	Active       bool   `json:"active" bson:"active"`
}

// TokenResponse is returned by the token endpoint
type TokenResponse struct {
	Token     string `json:"token"`
	ID        string `json:"_id"`
	Role      Role   `json:"role"`
	ExpiresAt int64  `json:"expiresAt"`
}
