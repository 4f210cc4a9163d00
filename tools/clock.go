// Clock Tool - reports the current date and time.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ClockTool returns the current local date and time.
type ClockTool struct {
	BaseTool
	now func() time.Time
}

// NewClockTool creates a new clock tool.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

// Metadata returns the tool metadata.
func (t *ClockTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "get_time",
		Description: "Get the current date and time",
		Parameters:  []ToolParameter{},
	}
}

// Execute returns the current time in ISO format.
func (t *ClockTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	now := t.now()
	zone, _ := now.Zone()

	payload := struct {
		DateTime string `json:"datetime"`
		Date     string `json:"date"`
		Time     string `json:"time"`
		Timezone string `json:"timezone"`
	}{
		DateTime: now.Format(time.RFC3339),
		Date:     now.Format("2006-01-02"),
		Time:     now.Format("15:04:05"),
		Timezone: zone,
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to encode time: %w", err)), nil
	}
	return SuccessResult(string(out)), nil
}

// Verify ClockTool implements Tool
var _ Tool = (*ClockTool)(nil)
