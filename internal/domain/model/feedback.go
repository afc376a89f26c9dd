package model

import (
	"time"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MinMessageLength = 10

	// DisplayDateLayout renders dates the way the lab UI shows them (DD.MM.YYYY).
	DisplayDateLayout = "02.01.2006"
)

type Feedback struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Rating    int       `json:"rating"`
	Message   string    `json:"message"`
	Date      string    `json:"date"`      // fixed at creation
	Timestamp int64     `json:"timestamp"` // unix millis, fixed at creation
	UpdatedAt time.Time `json:"updated_at"`
}

// WrittenBy reports whether the feedback belongs to the holder of email.
// Feedback has no user key; authorship is by email match.
func (f *Feedback) WrittenBy(email string) bool {
	return f.Email == email
}

func DisplayDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}
