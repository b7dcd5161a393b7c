package orchestrator

import (
	"github.com/hrygo/botweaver/intent"
)

// Block is one presentation-ready portion of a reply, in intent order.
type Block struct {
	Kind  intent.Kind
	Text  string
	IsErr bool
}

// RenderBlocks converts an aggregated result into ordered render blocks, one
// per outcome. Pure function: no I/O, no side effects. A failed outcome
// renders as an error block carrying its error detail.
func RenderBlocks(result AggregatedResult) []Block {
	blocks := make([]Block, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		if outcome.Succeeded {
			blocks = append(blocks, Block{Kind: outcome.Kind, Text: outcome.Payload})
			continue
		}
		detail := "處理失敗"
		if outcome.Err != nil {
			detail = outcome.Err.Error()
		}
		blocks = append(blocks, Block{Kind: outcome.Kind, Text: detail, IsErr: true})
	}
	return blocks
}
