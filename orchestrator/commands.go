package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/botweaver/intent"
)

// commandAction is one local command handler. Commands never delegate to
// external handlers.
type commandAction func(ctx context.Context, d *Dispatcher, userID string) DispatchOutcome

// commandTable maps every recognized alias to its action. Aliases must stay
// in sync with the classifier's alias set.
var commandTable = map[string]commandAction{
	"/clear": cmdClear, "/清除": cmdClear, "/reset": cmdClear, "/重置": cmdClear,
	"/status": cmdStatus, "/狀態": cmdStatus, "/info": cmdStatus,
	"/help": cmdHelp, "/幫助": cmdHelp, "/說明": cmdHelp,
	"/session-stats": cmdStats, "/stats": cmdStats,
}

func (d *Dispatcher) executeCommand(ctx context.Context, userID, command string) DispatchOutcome {
	action, ok := commandTable[command]
	if !ok {
		return failedOutcome(intent.KindCommand, ErrCodeUnknownCommand, fmt.Sprintf("unknown command: %s", command), nil)
	}
	return action(ctx, d, userID)
}

func cmdClear(_ context.Context, d *Dispatcher, userID string) DispatchOutcome {
	if d.sessions.Clear(userID) {
		return successOutcome(intent.KindCommand, "✅ 對話已重置\n\n你可以開始新的對話了！")
	}
	return successOutcome(intent.KindCommand, "📊 目前沒有進行中的對話。\n\n發送任何訊息開始新對話！")
}

func cmdStatus(_ context.Context, d *Dispatcher, userID string) DispatchOutcome {
	info, ok := d.sessions.Describe(userID)
	if !ok || info.Expired {
		return successOutcome(intent.KindCommand, "📊 目前沒有進行中的對話。")
	}
	idle := time.Since(info.LastActive).Round(time.Second)
	text := fmt.Sprintf("📊 對話狀態\n\n💬 訊息數：%d\n🕐 開始於：%s\n⏱️ 閒置時間：%s\n\n對話會在閒置 %s 後自動過期。",
		info.HistoryLength,
		info.CreatedAt.Format("2006-01-02 15:04"),
		idle,
		d.sessions.Timeout(),
	)
	return successOutcome(intent.KindCommand, text)
}

func cmdStats(_ context.Context, d *Dispatcher, _ string) DispatchOutcome {
	stats := d.sessions.Stats()
	text := fmt.Sprintf("📈 Session 統計資訊\n\n👥 活躍對話數：%d\n💬 總訊息數：%d\n⏱️ 最舊對話：%.1f 分鐘\n🧹 清理次數：%d\n🗑️ 已清理對話：%d",
		stats.ActiveSessions,
		stats.TotalHistoryEntries,
		stats.OldestSessionAge.Minutes(),
		stats.CleanupRuns,
		stats.TotalCleaned,
	)
	return successOutcome(intent.KindCommand, text)
}

func cmdHelp(_ context.Context, d *Dispatcher, _ string) DispatchOutcome {
	text := fmt.Sprintf(`🤖 智能助手

💬 對話功能
發送任何問題，我會提供詳細回答。
支援連續對話，我會記住我們的對話內容！

🔗 內容摘要
發送任何網址，我會自動擷取並摘要內容。
• 網頁文章
• YouTube 影片

📍 位置服務
發送你的位置，可以搜尋附近的加油站、停車場、餐廳。

🖼️ 圖片分析
發送圖片，我會分析圖片內容。

⚡ 特殊指令
/clear - 清除對話記憶
/status - 查看對話狀態
/stats - 查看 Session 統計
/help - 顯示此說明
@g - GitHub Issues 摘要

提示：對話會在 %s 無互動後自動過期。`, d.sessions.Timeout())
	return successOutcome(intent.KindCommand, text)
}
