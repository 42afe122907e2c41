package domain

import (
	"context"
	"strings"
)

// Reasoner generates a natural-language match explanation for one
// resume/job pair from an already-assembled prompt.
type Reasoner interface {
	Explain(ctx context.Context, prompt string) (string, error)
}

// DefaultPromptInstruction is used when the caller supplies no override.
// It mirrors the skills-gap framing the matcher's UI expects.
const DefaultPromptInstruction = "List skills which the candidate might lack for this job (if any). And list matching skills."

const (
	resumePlaceholder = "{resume}"
	jobPlaceholder    = "{job}"
)

// PromptTemplate assembles reasoning prompts. Recognized placeholders are
// {resume} and {job}; the instruction is free text prepended to the template.
type PromptTemplate struct {
	Instruction string
	Body        string
	MaxChars    int // per-text head truncation, 0 = no limit
}

// DefaultPromptTemplate returns the built-in template.
func DefaultPromptTemplate(maxChars int) PromptTemplate {
	return PromptTemplate{
		Instruction: DefaultPromptInstruction,
		Body:        "Resume:\n" + resumePlaceholder + "\n\nJob Description:\n" + jobPlaceholder + "\n",
		MaxChars:    maxChars,
	}
}

// WithInstruction returns a copy with the instruction replaced when override
// is non-empty.
func (t PromptTemplate) WithInstruction(override string) PromptTemplate {
	if override != "" {
		t.Instruction = override
	}
	return t
}

// Render substitutes the resume and job texts into the template, truncating
// each to MaxChars first.
func (t PromptTemplate) Render(resumeText, jobText string) string {
	body := strings.ReplaceAll(t.Body, resumePlaceholder, Truncate(resumeText, t.MaxChars))
	body = strings.ReplaceAll(body, jobPlaceholder, Truncate(jobText, t.MaxChars))
	if t.Instruction == "" {
		return body
	}
	return t.Instruction + "\n" + body
}
