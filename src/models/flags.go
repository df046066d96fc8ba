package models

// Flags is the role bitmask stored with every account
type Flags int

const (
	// FlagAdmin grants access to operations on other accounts
	FlagAdmin Flags = 1 << iota
	// FlagActive allows the account to authenticate
	FlagActive

	// AllFlags is the set of recognized bits
	AllFlags = FlagAdmin | FlagActive
)

// Has reports whether any of the given bits are set
func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

// With returns f with the recognized bits of flags added.
// Bits outside AllFlags are ignored.
func (f Flags) With(flags Flags) Flags {
	return f | (flags & AllFlags)
}

// Without returns f with the bits of flags that are currently set cleared.
// Unlike With, the argument is not masked to AllFlags, so unknown bits
// loaded from storage can still be cleared.
func (f Flags) Without(flags Flags) Flags {
	return f ^ (flags & f)
}
