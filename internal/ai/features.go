package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kariyerai/backend/internal/models"
)

const maxCVTextRunes = 20000

// MatchScore is the model's assessment of a CV against a listing.
type MatchScore struct {
	Score     int      `json:"score"`
	Feedback  string   `json:"feedback"`
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

// StructuredCV is a CV parsed out of free text.
type StructuredCV struct {
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data"`
}

const scoreInstructions = `You are a recruiter. Compare the candidate CV with the job listing.
Reply with a JSON object: {"score": 0-100 integer, "feedback": string, "strengths": [string], "gaps": [string]}.`

const chatInstructions = `You are KariyerAI, a career assistant helping the user build and improve a CV.
Ask one focused question at a time and keep answers short. Reply in the user's language.`

const structureInstructions = `Extract the resume below into a JSON object:
{"title": string, "data": {"fullName": string, "email": string, "phone": string, "summary": string,
"experience": [{"company": string, "position": string, "startDate": string, "endDate": string, "description": string}],
"education": [{"school": string, "degree": string, "field": string, "startDate": string, "endDate": string}],
"skills": [string], "languages": [string]}}. Use empty strings or arrays for missing fields.`

// ScoreMatch asks the model to score cv against job.
func (c *Client) ScoreMatch(ctx context.Context, cv json.RawMessage, job *models.JobListing) (*MatchScore, error) {
	input := fmt.Sprintf("CV:\n%s\n\nJOB TITLE: %s\nCOMPANY: %s\nDESCRIPTION:\n%s\nREQUIREMENTS:\n%s",
		string(cv), job.Title, job.Company, job.Description, job.Requirements)
	reply, err := c.respond(ctx, scoreInstructions, []Message{{Role: "user", Content: input}}, true)
	if err != nil {
		return nil, err
	}
	var out MatchScore
	if err := decodeJSON(reply.Text, &out); err != nil {
		return nil, err
	}
	if out.Score < 0 {
		out.Score = 0
	}
	if out.Score > 100 {
		out.Score = 100
	}
	if out.Strengths == nil {
		out.Strengths = []string{}
	}
	if out.Gaps == nil {
		out.Gaps = []string{}
	}
	return &out, nil
}

// ChatCV continues a CV-building conversation. history is oldest first and excludes message.
func (c *Client) ChatCV(ctx context.Context, history []Message, message string) (*Reply, error) {
	input := make([]Message, 0, len(history)+1)
	input = append(input, history...)
	input = append(input, Message{Role: "user", Content: message})
	return c.respond(ctx, chatInstructions, input, false)
}

// StructureCV turns extracted resume text into CV data.
func (c *Client) StructureCV(ctx context.Context, text string) (*StructuredCV, error) {
	if r := []rune(text); len(r) > maxCVTextRunes {
		text = string(r[:maxCVTextRunes])
	}
	reply, err := c.respond(ctx, structureInstructions, []Message{{Role: "user", Content: text}}, true)
	if err != nil {
		return nil, err
	}
	var out StructuredCV
	if err := decodeJSON(reply.Text, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || string(out.Data) == "null" {
		return nil, fmt.Errorf("ai: structured cv has no data")
	}
	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		out.Title = "Imported CV"
	}
	return &out, nil
}
