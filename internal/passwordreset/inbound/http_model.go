package inbound

type RequestOTPRequest struct {
	Email string `json:"email"`
}

type RequestOTPResponse struct {
	ExpiresInMinutes int `json:"expiresInMinutes"`
}

func (RequestOTPResponse) Message() string {
	return "OTP has been sent to your email"
}

type VerifyOTPRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type VerifyOTPResponse struct{}

func (VerifyOTPResponse) Message() string {
	return "Password has been reset successfully"
}
