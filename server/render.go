package server

import (
	"strings"

	"github.com/hrygo/botweaver/orchestrator"
)

// blockSeparator joins the portions of a multi-intent reply.
const blockSeparator = "\n\n---\n\n"

// renderReply turns an aggregated result into one platform-ready reply text.
// A single outcome renders as-is; multiple outcomes are joined with a
// separator; failed outcomes carry an error marker.
func renderReply(result orchestrator.AggregatedResult) string {
	blocks := orchestrator.RenderBlocks(result)
	if len(blocks) == 0 {
		return "❌ 無法處理您的請求"
	}

	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.IsErr {
			parts = append(parts, "❌ "+block.Text)
			continue
		}
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, blockSeparator)
}
