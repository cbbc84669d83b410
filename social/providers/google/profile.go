package google

import "github.com/goliatone/go-signin/social"

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

func (u userInfo) profile() *social.Profile {
	name := u.Name
	if name == "" {
		name = joinName(u.GivenName, u.FamilyName)
	}

	return &social.Profile{
		Subject:       u.Sub,
		Provider:      ProviderID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Name:          name,
		AvatarURL:     u.Picture,
		Raw: map[string]any{
			"sub":            u.Sub,
			"email":          u.Email,
			"email_verified": u.EmailVerified,
			"name":           u.Name,
			"given_name":     u.GivenName,
			"family_name":    u.FamilyName,
			"picture":        u.Picture,
			"locale":         u.Locale,
		},
	}
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
