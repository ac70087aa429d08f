package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CVSource records how a CV was produced.
type CVSource string

const (
	CVSourceManual CVSource = "MANUAL"
	CVSourceChat   CVSource = "CHAT"
	CVSourcePDF    CVSource = "PDF"
)

// CV is a user's structured resume.
type CV struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Title     string          `json:"title"`
	Source    CVSource        `json:"source"`
	Data      json.RawMessage `json:"data"`
	PDFKey    *string         `json:"pdfKey,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// MatchResult is a persisted AI job-match score.
type MatchResult struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"userId"`
	CVID           uuid.UUID `json:"cvId"`
	JobID          uuid.UUID `json:"jobId"`
	Score          int       `json:"score"`
	Feedback       string    `json:"feedback"`
	Strengths      []string  `json:"strengths"`
	Gaps           []string  `json:"gaps"`
	CreditsCharged int       `json:"creditsCharged"`
	CreatedAt      time.Time `json:"createdAt"`
}
