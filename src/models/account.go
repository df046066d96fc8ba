package models

import "time"

// Account represents a stored credential record keyed by username
type Account struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // never expose
	Created      time.Time  `json:"created"`
	LastLogin    *time.Time `json:"last_login"`
	Flags        Flags      `json:"flags"`
}

// IsAdmin returns true if the admin bit is set
func (a *Account) IsAdmin() bool {
	return a.Flags.Has(FlagAdmin)
}

// IsActive returns true if the account may authenticate
func (a *Account) IsActive() bool {
	return a.Flags.Has(FlagActive)
}
