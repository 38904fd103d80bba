package models

import "fmt"

// UserRef identifies a Telegram user as captured from an update.
// Only the fields the bot actually reads are kept.
type UserRef struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// DisplayName renders a user for messages: @username when present,
// otherwise the real name, otherwise a numeric fallback.
func (u UserRef) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " " + u.LastName
		} else {
			name = u.LastName
		}
	}
	if name != "" {
		return name
	}
	return fmt.Sprintf("User %d", u.ID)
}
