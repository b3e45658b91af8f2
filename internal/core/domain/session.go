package domain

// Session is the client-side view of who is signed in. It replaces an
// ambient "current session" singleton: callers own a Session value and
// mutate it only through its methods.
type Session struct {
	User            *PublicUser `json:"user"`
	Token           string      `json:"token,omitempty"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

func (s *Session) SetUser(user *PublicUser) {
	s.User = user
	s.IsAuthenticated = s.User != nil || s.Token != ""
}

func (s *Session) SetToken(token string) {
	s.Token = token
	s.IsAuthenticated = s.User != nil || s.Token != ""
}

// SetSession merges the provided fields, keeping current values for nil
// user or empty token.
func (s *Session) SetSession(user *PublicUser, token string) {
	if user != nil {
		s.User = user
	}
	if token != "" {
		s.Token = token
	}
	s.IsAuthenticated = s.User != nil || s.Token != ""
}

func (s *Session) Clear() {
	s.User = nil
	s.Token = ""
	s.IsAuthenticated = false
}
