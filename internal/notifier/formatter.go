package notifier

import (
	"fmt"
	"html"
	"strings"

	"MarketConcierge/internal/model"
)

// FormatInsight renders an advisor insight as a Telegram HTML message.
func FormatInsight(in model.Insight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎩 <b>%s</b> | %s\n\n", html.EscapeString(in.Symbol), in.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(in.Title))
	fmt.Fprintf(&b, "%s\n\n", html.EscapeString(in.Message))
	fmt.Fprintf(&b, "Sentiment: %s (%d)\n", in.Sentiment, in.Score)
	fmt.Fprintf(&b, "Trend: %s | RSI: %.2f | EMA20: %.2f\n", in.Trend, in.RSI, in.EMA20)
	return b.String()
}

// FormatSentimentChange announces that the advisor changed its view.
func FormatSentimentChange(prev, cur model.Insight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>%s</b>: %s → %s\n\n", html.EscapeString(cur.Symbol), prev.Sentiment, cur.Sentiment)
	b.WriteString(FormatInsight(cur))
	return b.String()
}

// FormatSentiment renders a gauge score for the chat.
func FormatSentiment(symbol string, res model.SentimentResult, available bool) string {
	if !available {
		return fmt.Sprintf("📊 <b>%s</b>\n\nNot enough data to score yet.", html.EscapeString(symbol))
	}
	return fmt.Sprintf("📊 <b>%s</b>\n\nSentiment: <b>%s</b>\nScore: %d/100",
		html.EscapeString(symbol), res.Label, res.Score)
}

// FormatJobReport summarizes a batch job run per symbol.
func FormatJobReport(job string, details map[string]string, symbols []string) string {
	var b strings.Builder
	failed := 0
	for _, s := range symbols {
		if details[s] != "Success" {
			failed++
		}
	}
	fmt.Fprintf(&b, "⚙️ <b>%s</b>: %d/%d ok\n", job, len(symbols)-failed, len(symbols))
	for _, s := range symbols {
		if d := details[s]; d != "Success" {
			fmt.Fprintf(&b, "❌ %s: %s\n", html.EscapeString(s), html.EscapeString(d))
		}
	}
	return b.String()
}

// HelpText lists the chat commands.
const HelpText = "Available commands:\n" +
	"• /sentiment SYMBOL – technical sentiment score\n" +
	"• /advice SYMBOL – latest concierge insight\n" +
	"• /help – this message"
