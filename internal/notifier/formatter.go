package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"DivergenceSentinel/internal/model"
	"DivergenceSentinel/internal/portfolio"
	"DivergenceSentinel/internal/recorder"
)

var signalIcons = map[model.SignalType]string{
	model.StrongBuy:  "🟢🟢",
	model.Buy:        "🟢",
	model.WeakBuy:    "🟡",
	model.Hold:       "⚪",
	model.WeakSell:   "🟠",
	model.Sell:       "🔴",
	model.StrongSell: "🔴🔴",
}

// FormatSignal formats an evaluated signal and its plan (nil when not sized).
func FormatSignal(sig model.Signal, plan *model.RiskPlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>%s %s</b> | %s\n\n", signalIcons[sig.Type], sig.Type, sig.Symbol,
		sig.Timestamp.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Price: %.4f\n", sig.Price)
	fmt.Fprintf(&b, "RSI: %.2f\n", sig.RSI)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", sig.Confidence*100)
	if sig.Divergence != nil {
		fmt.Fprintf(&b, "Divergence: %s (strength %.2f)\n", sig.Divergence.Kind, sig.Divergence.Strength)
	}
	if sig.Levels.Support > 0 || sig.Levels.Resistance > 0 {
		fmt.Fprintf(&b, "Support / Resistance: %.4f / %.4f\n", sig.Levels.Support, sig.Levels.Resistance)
	}
	fmt.Fprintf(&b, "\n%s\n", html.EscapeString(sig.Reasoning))

	if plan != nil {
		b.WriteString("\n💰 <b>Plan</b>\n")
		fmt.Fprintf(&b, "  %s %.8g @ %.4f\n", strings.ToUpper(string(plan.Side)), plan.Size, plan.Entry)
		fmt.Fprintf(&b, "  Stop: %.4f | Target: %.4f\n", plan.StopLoss, plan.TakeProfit)
		fmt.Fprintf(&b, "  Risk: %.2f | R:R %.2f\n", plan.RiskAmount, plan.RewardRisk)
		if plan.Capped {
			b.WriteString("  ⚠️ size clipped to max position\n")
		}
	}
	return b.String()
}

// FormatPositionOpened formats a new position.
func FormatPositionOpened(pos model.Position) string {
	return fmt.Sprintf("📥 <b>Opened %s %s</b>\nSize: %.8g @ %.4f\nStop: %.4f | Target: %.4f",
		strings.ToUpper(string(pos.Side)), pos.Symbol, pos.Size, pos.Entry, pos.StopLoss, pos.TakeProfit)
}

// FormatPositionClosed formats a closed position with its result.
func FormatPositionClosed(pos model.Position) string {
	icon := "✅"
	if pos.RealizedPnL <= 0 {
		icon = "❌"
	}
	return fmt.Sprintf("%s <b>Closed %s %s</b> (%s)\n%.4f → %.4f\nPnL: %+.2f",
		icon, strings.ToUpper(string(pos.Side)), pos.Symbol, pos.ExitReason,
		pos.Entry, pos.ExitPrice, pos.RealizedPnL)
}

// FormatStatus formats the account summary.
func FormatStatus(balance float64, stats portfolio.Stats, open int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 <b>Status</b> | %s\n\n", time.Now().UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Balance: %.2f\n", balance)
	fmt.Fprintf(&b, "Open positions: %d\n", open)
	fmt.Fprintf(&b, "Trades: %d (won %d, lost %d)\n", stats.TotalTrades, stats.WinningTrades, stats.LosingTrades)
	fmt.Fprintf(&b, "Total PnL: %+.2f\n", stats.TotalPnL)
	fmt.Fprintf(&b, "Win rate: %.1f%%\n", stats.WinRate()*100)
	return b.String()
}

// FormatPositions lists open positions with unrealized PnL where a price is known.
func FormatPositions(open []model.Position, prices map[string]float64) string {
	if len(open) == 0 {
		return "No open positions"
	}
	var b strings.Builder
	b.WriteString("📋 <b>Open positions</b>\n\n")
	for _, p := range open {
		fmt.Fprintf(&b, "%s %s %.8g @ %.4f (SL %.4f / TP %.4f)",
			p.Symbol, strings.ToUpper(string(p.Side)), p.Size, p.Entry, p.StopLoss, p.TakeProfit)
		if price, ok := prices[p.Symbol]; ok {
			fmt.Fprintf(&b, " PnL %+.2f", p.UnrealizedPnL(price))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRecentSignals lists journaled signals, newest first.
func FormatRecentSignals(recs []recorder.SignalRecord) string {
	if len(recs) == 0 {
		return "No signals recorded"
	}
	var b strings.Builder
	b.WriteString("🧾 <b>Recent signals</b>\n\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "%s %s %s RSI %.1f conf %.2f\n",
			time.Unix(r.Timestamp, 0).UTC().Format("01-02 15:04"), r.Symbol, r.Type, r.RSI, r.Confidence)
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Commands:\n/status - account summary\n/positions - open positions\n/signals - recent signals\n/run - run a trading cycle now"
}
