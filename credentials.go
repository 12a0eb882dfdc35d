package gotauth

import "time"

// Request bodies accepted by the HTTP handlers.  Limits match the column
// sizes of the user record.

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=60"`
	Password string `json:"passwd" validate:"required,min=6,max=100"`
}

type SignupRequest struct {
	Name      string     `json:"name" validate:"required,max=80"`
	Gender    string     `json:"gender" validate:"omitempty,oneof=F M"`
	Birthdate *time.Time `json:"birthdate"`
	Email     string     `json:"email" validate:"required,email,max=60"`
	Password  string     `json:"passwd" validate:"required,min=6,max=100"`
	Alert     bool       `json:"alert"`
}

// Profile converts the request into signup input.
func (r SignupRequest) Profile() Profile {
	return Profile{
		Name:      r.Name,
		Email:     r.Email,
		Password:  r.Password,
		Gender:    r.Gender,
		Birthdate: r.Birthdate,
		Alert:     r.Alert,
	}
}

type RecoveryRequest struct {
	Email string `json:"email" validate:"required,email,max=60"`
}

type UpdateUserRequest struct {
	Name        string `json:"name" validate:"required,max=80"`
	Alert       *bool  `json:"alert"`
	OldPassword string `json:"passwdold" validate:"omitempty,max=100"`
	Password    string `json:"passwd" validate:"omitempty,min=6,max=100"`
}

func (r UpdateUserRequest) ProfileUpdate() ProfileUpdate {
	return ProfileUpdate{
		Name:        r.Name,
		Alert:       r.Alert,
		OldPassword: r.OldPassword,
		NewPassword: r.Password,
	}
}

type ProviderLoginRequest struct {
	AccessToken string `json:"access_token" validate:"required,max=4096"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}
