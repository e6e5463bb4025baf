package marketdata

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/market/indicators"
)

const (
	// minAnomalyTicks gates both anomaly checks.
	minAnomalyTicks = 100

	// fatFingerSigma flags a price change beyond this many standard
	// deviations of recent change magnitudes.
	fatFingerSigma = 5.0

	// volumeSpikeFactor flags volume beyond this multiple of the trailing
	// rolling mean.
	volumeSpikeFactor = 10.0

	volumeSpikeWindow = 50
)

// Anomaly describes one advisory market irregularity. Anomalies are logged,
// never blocking.
type Anomaly struct {
	Instrument string
	Type       string
	Severity   string
	Details    string
	Time       time.Time
}

// DetectAnomalies scans an instrument's buffered ticks for fat-finger price
// moves and volume spikes. It requires at least minAnomalyTicks of history
// and otherwise reports nothing.
func (e *Engine) DetectAnomalies(instrument string) []Anomaly {
	e.mu.RLock()
	buf, ok := e.buffers[instrument]
	var values []float64
	var volumes []float64
	var at time.Time
	if ok && buf.Len() >= minAnomalyTicks {
		ticks := buf.Values()
		values = make([]float64, len(ticks))
		volumes = make([]float64, len(ticks))
		for i, t := range ticks {
			values[i] = t.Price
			volumes[i] = t.Volume
		}
		at = ticks[len(ticks)-1].Time
	}
	e.mu.RUnlock()

	if len(values) < minAnomalyTicks {
		return nil
	}

	var anomalies []Anomaly

	changes := pctChanges(values)
	if len(changes) > 1 {
		mags := make([]float64, len(changes))
		for i, c := range changes {
			mags[i] = math.Abs(c)
		}
		last := mags[len(mags)-1]
		threshold := indicators.StdDev(mags) * fatFingerSigma
		if threshold > 0 && last > threshold {
			anomalies = append(anomalies, Anomaly{
				Instrument: instrument,
				Type:       "fat_finger",
				Severity:   "high",
				Details:    fmt.Sprintf("price moved %.2f%%", last*100),
				Time:       at,
			})
		}
	}

	if len(volumes) > volumeSpikeWindow {
		window := volumes[len(volumes)-1-volumeSpikeWindow : len(volumes)-1]
		mean := indicators.Mean(window)
		last := volumes[len(volumes)-1]
		if mean > 0 && last > mean*volumeSpikeFactor {
			anomalies = append(anomalies, Anomaly{
				Instrument: instrument,
				Type:       "volume_spike",
				Severity:   "medium",
				Details:    fmt.Sprintf("volume %.1fx trailing average", last/mean),
				Time:       at,
			})
		}
	}

	for _, a := range anomalies {
		e.log.Warn("anomaly detected",
			zap.String("instrument", a.Instrument),
			zap.String("type", a.Type),
			zap.String("severity", a.Severity),
			zap.String("details", a.Details))
	}
	return anomalies
}
