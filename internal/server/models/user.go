package models

import "time"

// User is the single identity record managed by the engine.
//
// VerificationCode doubles as the email-confirmation code and the
// password-reset code. It is nil after a successful verification and an
// empty string after a completed password reset; the two "no pending
// code" sentinels are distinct on purpose and must not be normalized.
type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	TaxID            string     `json:"taxId"`
	FullName         string     `json:"fullName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Password         string     `json:"-"`
	VerificationCode *string    `json:"-"`
	IsVerified       bool       `json:"isVerified"`
	IsActive         bool       `json:"isActive"`
	IsGoogleUser     bool       `json:"isGoogleUser"`
	GoogleID         string     `json:"googleId"`
	Picture          string     `json:"picture"`
	LastLogin        *time.Time `json:"lastLogin"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
