package model

import "time"

// Record is one dated attendance entry owned by a user.
//
// ClassName and Role are stored lowercase so grouping and filtering are
// case-insensitive. Date is UTC with millisecond precision.
type Record struct {
	ID        string
	UserID    string
	ClassName string
	Role      string
	Date      time.Time
}

// ClassCount is one row of the per-day aggregation.
type ClassCount struct {
	ClassName string `json:"className"`
	Count     int    `json:"count"`
}
