package model

import (
	"fmt"
	"net/url"
)

// UserProfile is the tenant-scoped public identity of a user. InstitutionID
// and Role are fixed at creation and never change afterwards.
type UserProfile struct {
	UID           string `json:"uid"`
	InstitutionID string `json:"institutionId"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	RollNo        string `json:"rollNo,omitempty"`
	Role          Role   `json:"role"`
	Avatar        string `json:"avatar,omitempty"`
	Batch         string `json:"batch,omitempty"`
	Bio           string `json:"bio,omitempty"`
	Blocked       bool   `json:"blocked"`
}

// Account is the credential record backing a profile. It lives in its own
// collection keyed by the same uid so credentials never travel with profile
// reads.
type Account struct {
	UID           string `json:"uid"`
	InstitutionID string `json:"institutionId"`
	Email         string `json:"email"`
	PasswordHash  string `json:"passwordHash"`
}

// DefaultAvatar returns the generated avatar URL used when a user signs up
// without uploading one.
func DefaultAvatar(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s", url.QueryEscape(name))
}
