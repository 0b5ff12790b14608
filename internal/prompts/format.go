package prompts

import (
	"strings"

	"github.com/qcatchat/catchat/internal/core"
)

// FormatResponse splits a completion on the "Summary:" and "Details:"
// markers. The summary is the text after the first "Summary:" up to the next
// "Summary:" or "Details:"; the details are the text after the first
// "Details:" up to any repeat of it. Without both markers the raw text is
// returned as details.
func FormatResponse(raw string) core.StructuredReply {
	if !strings.Contains(raw, "Summary:") || !strings.Contains(raw, "Details:") {
		return core.StructuredReply{Details: raw}
	}

	summary := strings.Split(raw, "Summary:")[1]
	summary = strings.Split(summary, "Details:")[0]
	details := strings.Split(raw, "Details:")[1]

	return core.StructuredReply{
		Summary: strings.TrimSpace(summary),
		Details: strings.TrimSpace(details),
	}
}
