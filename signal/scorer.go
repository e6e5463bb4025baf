package signal

// Prediction is a scorer's verdict on one instrument's features.
type Prediction struct {
	Direction      Direction
	Confidence     float64
	ExpectedReturn float64
	HoldingPeriod  string
}

// Scorer turns a feature snapshot into a directional prediction. The
// heuristic implementation below is a placeholder; a fitted model can be
// substituted without touching feature computation.
type Scorer interface {
	Score(f Features) Prediction
}

// HeuristicScorer accumulates a vote score and confidence across feature
// signals: favorable microstructure adds small votes, oversold/overbought
// oscillator readings add large ones.
type HeuristicScorer struct {
	// LongThreshold and ShortThreshold bound the neutral zone of the vote
	// score. Zero values mean the defaults (+1 / -1).
	LongThreshold  float64
	ShortThreshold float64

	// BaseReturn scales expected return per unit of confidence. Zero means
	// the default of 2%.
	BaseReturn float64
}

const (
	defaultLongThreshold  = 1
	defaultShortThreshold = -1
	defaultBaseReturn     = 0.02

	maxConfidence = 0.9

	rsiOversold   = 30
	rsiOverbought = 70

	imbalanceQuiet = 0.3

	longHoldConfidence = 0.7
)

func (s HeuristicScorer) Score(f Features) Prediction {
	longAt := s.LongThreshold
	if longAt == 0 {
		longAt = defaultLongThreshold
	}
	shortAt := s.ShortThreshold
	if shortAt == 0 {
		shortAt = defaultShortThreshold
	}
	base := s.BaseReturn
	if base == 0 {
		base = defaultBaseReturn
	}

	score := 0.0
	confidence := 0.5

	if f.Micro.KyleLambda < 0 {
		score++
		confidence += 0.1
	}
	if f.Micro.VolumeImbalance < imbalanceQuiet {
		score++
		confidence += 0.1
	}

	switch {
	case f.Technical.RSI < rsiOversold:
		score += 2
		confidence += 0.2
	case f.Technical.RSI > rsiOverbought:
		score -= 2
		confidence += 0.2
	}
	if f.Technical.MACDSignal > 0 {
		score++
		confidence += 0.1
	}

	direction := Neutral
	if score > longAt {
		direction = Long
	} else if score < shortAt {
		direction = Short
	}

	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	holding := "4H"
	if confidence > longHoldConfidence {
		holding = "1D"
	}

	return Prediction{
		Direction:      direction,
		Confidence:     confidence,
		ExpectedReturn: float64(direction) * confidence * base,
		HoldingPeriod:  holding,
	}
}
