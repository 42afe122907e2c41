// Package export parses Telegram chat-export JSON into job vacancy candidates.
//
// The export format is loosely shaped: the top level is either an object with
// a "messages" array or a bare array, and the "text" field of a message is a
// string, an array of strings, or an array of rich-text fragments. Instead of
// trusting the shape at point of use, everything is validated here and any
// message missing a required field is rejected up front.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// messageType is the only entry type ingested as a vacancy; service messages
// (pins, joins) carry other types.
const messageType = "message"

// dateLayout matches the timezone-less ISO-8601 dates Telegram exports emit.
const dateLayout = "2006-01-02T15:04:05"

// Vacancy is one validated job posting extracted from an export.
type Vacancy struct {
	ID   string
	Date time.Time
	Text string
}

// rawEnvelope is the top-level export object form.
type rawEnvelope struct {
	Messages []json.RawMessage `json:"messages"`
}

// rawMessage is the validated per-entry schema.
type rawMessage struct {
	ID   *int64          `json:"id"`
	Type string          `json:"type"`
	Date string          `json:"date"`
	Text json.RawMessage `json:"text"`
}

// Parse extracts vacancies from an export blob. Entries that are not of type
// "message" are filtered out; message entries missing id or date are counted
// in rejected. Entries with empty text are returned as-is so the caller can
// report them per item. Malformed JSON fails with domain.ErrInvalidInput.
func Parse(data []byte) (vacancies []Vacancy, rejected int, err error) {
	entries, err := topLevelEntries(data)
	if err != nil {
		return nil, 0, err
	}

	for _, raw := range entries {
		var msg rawMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			rejected++
			continue
		}
		if msg.Type != messageType {
			continue
		}
		if msg.ID == nil || msg.Date == "" {
			rejected++
			continue
		}
		date, err := time.Parse(dateLayout, msg.Date)
		if err != nil {
			rejected++
			continue
		}

		vacancies = append(vacancies, Vacancy{
			ID:   fmt.Sprintf("%d", *msg.ID),
			Date: date,
			Text: flattenText(msg.Text),
		})
	}

	return vacancies, rejected, nil
}

// topLevelEntries accepts both the object form {"messages": [...]} and a bare
// array of messages.
func topLevelEntries(data []byte) ([]json.RawMessage, error) {
	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Messages != nil {
		return env.Messages, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	return nil, fmt.Errorf("export is neither a messages object nor an array: %w", domain.ErrInvalidInput)
}

// flattenText collapses the polymorphic "text" field into a single string.
// Rich-text fragments keep only their "text" value; newlines are normalized
// and padded so fragment boundaries stay word-separated.
func flattenText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return normalizeNewlines(s)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var b strings.Builder
	for _, part := range parts {
		var ps string
		if err := json.Unmarshal(part, &ps); err == nil {
			b.WriteString(normalizeNewlines(ps))
			continue
		}
		var frag struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &frag); err == nil {
			b.WriteString(normalizeNewlines(frag.Text))
		}
	}
	return b.String()
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", " \n ")
}
