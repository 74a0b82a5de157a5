package store

import "github.com/citypulse/server/internal/models"

// AuthState is the session slice.
type AuthState struct {
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

func (s AuthState) LoginSuccess(user models.User) AuthState {
	u := user
	s.User = &u
	s.IsAuthenticated = true
	return s
}

func (s AuthState) Logout() AuthState {
	return AuthState{}
}

// FavoritesOwner returns the user id that may hold favorites, or false for
// guests and signed-out devices.
func (s AuthState) FavoritesOwner() (string, bool) {
	if s.User == nil || s.User.IsGuest || s.User.ID == "" {
		return "", false
	}
	return s.User.ID, true
}
