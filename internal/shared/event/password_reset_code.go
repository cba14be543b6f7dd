package event

const PasswordResetCodeDestination string = "password_reset_code"
const PasswordResetCodeConsumerNotification string = "password_reset_code_notification"

// PasswordResetCodeMessage is published when a reset code has to reach the user.
// EventID is unique per publish and keys consumer-side deduplication.
type PasswordResetCodeMessage struct {
	EventID          int64  `json:"event_id"`
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	Code             string `json:"code"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}
