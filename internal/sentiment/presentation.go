package sentiment

import "MarketConcierge/internal/model"

// Tone is how a label is rendered: accent color and icon.
type Tone struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var (
	ToneBullish = Tone{Name: "bullish", Color: "emerald", Icon: "trending-up"}
	ToneBearish = Tone{Name: "bearish", Color: "rose", Icon: "trending-down"}
	ToneNeutral = Tone{Name: "neutral", Color: "gold", Icon: "minus"}
)

// ToneOf returns the tone for a label.
func ToneOf(label model.SentimentLabel) Tone {
	switch label {
	case model.LabelStrongBuy, model.LabelBuy:
		return ToneBullish
	case model.LabelStrongSell, model.LabelSell:
		return ToneBearish
	default:
		return ToneNeutral
	}
}

// GaugeFill is the fraction of the gauge arc to fill for a score.
func GaugeFill(score int) float64 {
	return float64(max(0, min(100, score))) / 100
}
