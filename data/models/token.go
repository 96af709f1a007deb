package models

import "time"

// Token is the opaque bearer credential for the JSON API. Each user has at
// most one.
type Token struct {
	Key     string    `json:"token" db:"key"`
	UserID  int64     `json:"userId" db:"user_id"`
	Created time.Time `json:"created" db:"created"`
}
