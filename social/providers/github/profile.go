package github

import "github.com/goliatone/go-signin/social"

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (u githubUser) profile(email string, verified bool) *social.Profile {
	name := u.Name
	if name == "" {
		name = u.Login
	}

	return &social.Profile{
		Subject:       formatID(u.ID),
		Provider:      ProviderID,
		Email:         email,
		EmailVerified: verified,
		Name:          name,
		Username:      u.Login,
		AvatarURL:     u.AvatarURL,
		Raw: map[string]any{
			"id":         u.ID,
			"login":      u.Login,
			"name":       u.Name,
			"email":      email,
			"avatar_url": u.AvatarURL,
			"html_url":   u.HTMLURL,
		},
	}
}
