package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/spigell/ai-interviewer/internal/interview"
)

var separator = strings.Repeat("=", 80)

// RenderTranscript formats entries as plain text, one block per entry in insertion order.
func RenderTranscript(entries []interview.Entry) string {
	var b strings.Builder
	b.WriteString(separator + "\nINTERVIEW TRANSCRIPT\n" + separator + "\n")

	for _, entry := range entries {
		fmt.Fprintf(&b, "\n[%s] ", entry.Timestamp.Format(time.RFC3339))
		switch entry.Type {
		case interview.EntryOpening:
			b.WriteString("OPENING\n")
		case interview.EntryClosing:
			b.WriteString("CLOSING\n")
		default:
			fmt.Fprintf(&b, "Q%d (Difficulty: %d)", entry.QuestionNumber, entry.Difficulty)
			if entry.Type == interview.EntryCodingQuestion {
				b.WriteString(" CODING")
			}
			b.WriteString("\n")
		}
		if entry.Candidate != "" {
			fmt.Fprintf(&b, "Candidate: %s\n", entry.Candidate)
		}
		fmt.Fprintf(&b, "Interviewer: %s\n", entry.Interviewer)
	}

	return b.String()
}
