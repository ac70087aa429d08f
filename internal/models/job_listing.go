package models

import (
	"time"

	"github.com/google/uuid"
)

// JobListing is a catalog entry CVs are matched against.
type JobListing struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	EmploymentType string    `json:"employmentType"`
	Description    string    `json:"description"`
	Requirements   string    `json:"requirements"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
