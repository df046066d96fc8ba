package models

import "encoding/json"

// Profile holds optional descriptive attributes of an account.
// A missing profile row is not an error, it just means no profile data.
type Profile struct {
	Username   string          `json:"username"`
	FirstName  *string         `json:"first_name,omitempty"`
	LastName   *string         `json:"last_name,omitempty"`
	Latitude   *float64        `json:"latitude,omitempty"`
	Longitude  *float64        `json:"longitude,omitempty"`
	Email      *string         `json:"email,omitempty"`
	Phone      *string         `json:"phone,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}
