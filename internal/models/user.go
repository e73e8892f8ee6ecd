package models

// User is a person known to the ledger. Profile fields come from the identity
// provider and are refreshed on every authenticated write.
type User struct {
	// ID is the identity provider's subject identifier.
	ID string `json:"id"`

	Email           string `json:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// DisplayName is the first name, or "Someone" when the profile has none.
func (u *User) DisplayName() string {
	if u == nil || u.FirstName == "" {
		return "Someone"
	}
	return u.FirstName
}
