package models

import "time"

const SubmissionStatusNew = "new"

// ContactSubmission is a contact-form entry reviewed through the admin
// dashboard. Status moves from "new" through whatever workflow states
// the dashboard sets via the update endpoint.
type ContactSubmission struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Name      string    `json:"name" dynamodbav:"name"`
	Email     string    `json:"email" dynamodbav:"email"`
	Phone     string    `json:"phone" dynamodbav:"phone"`
	Service   string    `json:"service" dynamodbav:"service"`
	Message   string    `json:"message" dynamodbav:"message"`
	Status    string    `json:"status" dynamodbav:"status"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
}

func (s *ContactSubmission) GetPK() string {
	return "SUBMISSION!" + s.ID
}

func (s *ContactSubmission) GetSK() string {
	return "METADATA"
}
