package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/botweaver/intent"
	"github.com/hrygo/botweaver/orchestrator"
)

func TestRenderReply(t *testing.T) {
	t.Run("SingleSuccess", func(t *testing.T) {
		result := orchestrator.AggregatedResult{
			OverallSuccess: true,
			Outcomes: []orchestrator.DispatchOutcome{
				{Kind: intent.KindChat, Succeeded: true, Payload: "你好！"},
			},
		}
		assert.Equal(t, "你好！", renderReply(result))
	})

	t.Run("MultipleJoinedWithSeparator", func(t *testing.T) {
		result := orchestrator.AggregatedResult{
			OverallSuccess: true,
			Outcomes: []orchestrator.DispatchOutcome{
				{Kind: intent.KindContentSummary, Succeeded: true, Payload: "摘要一"},
				{Kind: intent.KindVideoSummary, Succeeded: true, Payload: "摘要二"},
			},
		}
		assert.Equal(t, "摘要一\n\n---\n\n摘要二", renderReply(result))
	})

	t.Run("FailedOutcomeGetsErrorMarker", func(t *testing.T) {
		result := orchestrator.AggregatedResult{
			Outcomes: []orchestrator.DispatchOutcome{
				{Kind: intent.KindContentSummary, Succeeded: true, Payload: "摘要"},
				{
					Kind: intent.KindVideoSummary,
					Err:  &orchestrator.DispatchError{Code: orchestrator.ErrCodeHandlerFailed, Message: "video summary failed"},
				},
			},
		}
		reply := renderReply(result)
		assert.Contains(t, reply, "摘要")
		assert.Contains(t, reply, "❌ [HANDLER_FAILED] video summary failed")
		assert.Contains(t, reply, blockSeparator)
	})

	t.Run("EmptyResult", func(t *testing.T) {
		assert.Equal(t, "❌ 無法處理您的請求", renderReply(orchestrator.AggregatedResult{}))
	})
}
