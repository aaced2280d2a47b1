package debug

import (
	"encoding/json"
	"log/slog"

	"willvault/internal/event"
	"willvault/internal/models"
)

// PrintEvent prints a journal event in JSON format
func PrintEvent(ev event.Event) {
	jsonData, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal event to JSON", "error", err)
		return
	}

	slog.Debug("Journal event details", "json", string(jsonData))
}

// PrintWill prints a will record in JSON format
func PrintWill(will *models.WillRecord) {
	jsonData, err := json.MarshalIndent(will, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal will to JSON", "error", err)
		return
	}

	slog.Debug("Will record details", "json", string(jsonData))
}
