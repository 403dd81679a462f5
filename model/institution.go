package model

// Institution represents one onboarded tenant. All user and content data is
// partitioned by its ID.
type Institution struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"` // e.g. "NFSU", "IITD"; unique case-insensitively
	Logo        string `json:"logo"`
	Description string `json:"description"`
	ThemeColor  string `json:"themeColor"`
	EmailDomain string `json:"emailDomain,omitempty"` // optional signup restriction
}

// RequestStatus is the lifecycle state of an onboarding request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// OnboardingRequest is a prospective institution's signup submission. It only
// ever transitions PENDING -> APPROVED (which creates the institution) or
// PENDING -> REJECTED; no other mutation happens.
type OnboardingRequest struct {
	ID            string        `json:"id"`
	InstituteName string        `json:"instituteName"`
	ContactName   string        `json:"contactName"`
	Email         string        `json:"email"`
	EmailDomain   string        `json:"emailDomain,omitempty"`
	Status        RequestStatus `json:"status"`
}
