package model

import "time"

// Category is a collectible-item type a collection point can accept.
type Category struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// PointPayload is the flattened record sent to the backend to create a
// collection point.
type PointPayload struct {
	Name      string  `json:"name" yaml:"name"`
	Email     string  `json:"email" yaml:"email"`
	Whatsapp  string  `json:"whatsapp" yaml:"whatsapp"`
	UF        string  `json:"uf" yaml:"uf"`
	City      string  `json:"city" yaml:"city"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Items     []int   `json:"items" yaml:"items"`
}

// SubmissionStatus represents the outcome of a point submission.
type SubmissionStatus string

const (
	SubmissionStatusPending SubmissionStatus = "pending"
	SubmissionStatusCreated SubmissionStatus = "created"
	SubmissionStatusFailed  SubmissionStatus = "failed"
)

// Submission is a journal entry for one attempt to create a point.
type Submission struct {
	ID        string           `json:"id" yaml:"id"`
	Payload   PointPayload     `json:"payload" yaml:"payload"`
	Status    SubmissionStatus `json:"status" yaml:"status"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" yaml:"updated_at"`
}
