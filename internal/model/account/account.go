package account

import "strings"

// Credentials are the handle and app password an editor sends with every call.
type Credentials struct {
	Identifier string
	Password   string
}

// Complete reports whether both fields are present.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.Identifier) != "" && c.Password != ""
}

// Session is an authenticated identity on the remote store.
type Session struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// Owns reports whether repo (a DID or handle) names this session's identity.
func (s Session) Owns(repo string) bool {
	if repo == "" {
		return false
	}
	if strings.HasPrefix(repo, "did:") {
		return repo == s.DID
	}
	return strings.EqualFold(repo, s.Handle)
}

// Profile is the blogger user-info view derived from a handle.
type Profile struct {
	UserID    string `json:"userid"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	URL       string `json:"url"`
}

// ProfileFor derives a profile from a handle; no remote lookup is made.
func ProfileFor(handle, serviceURL string) Profile {
	first := handle
	if i := strings.Index(handle, "."); i > 0 {
		first = handle[:i]
	}
	return Profile{
		UserID:    handle,
		Nickname:  handle,
		Email:     handle + "@bsky.social",
		FirstName: first,
		LastName:  "",
		URL:       strings.TrimRight(serviceURL, "/") + "/profile/" + handle,
	}
}
