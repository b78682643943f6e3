package assessment

import "time"

// Note is one stored assessment entry. BodyPart is empty for legacy rows,
// which carry the body part as a prefix of Content instead.
type Note struct {
	ID        int64
	PatientID string
	BodyPart  string
	Section   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Write is a note to store for a canonical body part.
type Write struct {
	BodyPart string
	Section  string
	Content  string
}

// SaveResult reports what a save changed. Written and Cleared hold
// client keys such as "leftArm".
type SaveResult struct {
	Created int      `json:"created"`
	Written []string `json:"-"`
	Cleared []string `json:"-"`
}
