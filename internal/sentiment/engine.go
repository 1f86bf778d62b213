package sentiment

import "MarketConcierge/internal/model"

// buyTiers maps a minimum score to a buy-side label, checked top-down.
var buyTiers = []struct {
	MinScore int
	Label    model.SentimentLabel
}{
	{75, model.LabelStrongBuy},
	{60, model.LabelBuy},
}

// sellTiers maps a maximum score to a sell-side label, checked top-down.
var sellTiers = []struct {
	MaxScore int
	Label    model.SentimentLabel
}{
	{25, model.LabelStrongSell},
	{40, model.LabelSell},
}

// Neutral is the result shown before any sample has been scored.
func Neutral() model.SentimentResult {
	return model.SentimentResult{Score: Baseline, Label: model.LabelNeutral}
}

// Classify maps a clamped score to its label.
func Classify(score int) model.SentimentLabel {
	for _, t := range buyTiers {
		if score >= t.MinScore {
			return t.Label
		}
	}
	for _, t := range sellTiers {
		if score <= t.MaxScore {
			return t.Label
		}
	}
	return model.LabelNeutral
}

// Score evaluates the most recent historical sample in the sequence,
// skipping trailing forecast rows. It reports false when the sequence
// holds no sample with both close and RSI.
func Score(samples []model.MarketSample) (model.SentimentResult, bool) {
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].IsHistorical() {
			return Evaluate(samples[i]), true
		}
	}
	return model.SentimentResult{}, false
}

// Evaluate computes the score for a single sample. Rules whose indicator
// is missing contribute nothing.
func Evaluate(s model.MarketSample) model.SentimentResult {
	price := s.Close.Float64

	score := Baseline
	score += scoreTrend(price, s.EMA)
	score += scoreMomentum(s.RSI)
	score += scoreFilter(price, s.SMA)

	score = max(0, min(100, score))

	return model.SentimentResult{
		Score: score,
		Label: Classify(score),
	}
}
