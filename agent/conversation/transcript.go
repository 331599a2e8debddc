package conversation

import (
	"strings"
	"time"

	"bookline/agent/contract"
)

// HistoryLimit bounds how many turns a conversation keeps. The same
// window is applied to what the model sees and what gets persisted.
const HistoryLimit = 20

func Append(turns []contract.Turn, role contract.Role, content string, at time.Time) []contract.Turn {
	if strings.TrimSpace(content) == "" {
		return turns
	}
	return append(turns, contract.Turn{
		Role:      role,
		Content:   content,
		Timestamp: at.UTC(),
	})
}

// Trim keeps the most recent HistoryLimit turns.
func Trim(turns []contract.Turn) []contract.Turn {
	if len(turns) <= HistoryLimit {
		return turns
	}
	return turns[len(turns)-HistoryLimit:]
}
