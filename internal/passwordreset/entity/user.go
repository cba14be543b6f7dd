package entity

// User is the directory record a reset is issued for. ID is opaque to this module.
type User struct {
	ID    string
	Email string
}

// ResetCode is what gets delivered to the user. Code must never be logged.
type ResetCode struct {
	UserID           string
	Email            string
	Code             string
	ExpiresInMinutes int
}
