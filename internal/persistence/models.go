package persistence

import "time"

// Session is a scheduled speaking slot as stored by the session store.
type Session struct {
	ID                 string
	EventID            string
	Title              string
	Description        string
	FacultyID          string
	FacultyEmail       string
	Place              string
	HallID             string
	Start              time.Time
	End                time.Time
	DateBased          bool
	Status             string
	InviteStatus       string
	RejectionReason    *string
	SuggestedTopic     *string
	SuggestedTimeStart *time.Time
	SuggestedTimeEnd   *time.Time
	OptionalQuery      *string
	Travel             bool
	Accommodation      bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Faculty is a directory entry for an invited speaker.
type Faculty struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Hall is a directory entry for a room that sessions are booked into.
type Hall struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
