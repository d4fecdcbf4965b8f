package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hkquant/equity-backtest/internal/indicators"
)

func readySnap() indicators.Snapshot {
	return indicators.Snapshot{
		ADXReady:  true,
		BollReady: true,
		VolReady:  true,
		Close:     100.0,
		BollUpper: 105.0,
		High20:    104.0,
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*indicators.Snapshot)
		want Type
	}{
		{"trending", func(s *indicators.Snapshot) {
			s.ADX = 28
			s.BollBandwidth = 0.12
		}, Trending},
		{"ranging", func(s *indicators.Snapshot) {
			s.ADX = 15
			s.BollBandwidth = 0.03
		}, Ranging},
		{"breakout above band", func(s *indicators.Snapshot) {
			s.VolumeRat = 2.5
			s.Close = 106.0
		}, Breakout},
		{"breakout above rolling high", func(s *indicators.Snapshot) {
			s.VolumeRat = 2.5
			s.Close = 104.5
		}, Breakout},
		{"breakout beats trending", func(s *indicators.Snapshot) {
			s.VolumeRat = 2.5
			s.Close = 106.0
			s.ADX = 30
			s.BollBandwidth = 0.12
		}, Breakout},
		{"neutral between thresholds", func(s *indicators.Snapshot) {
			s.ADX = 22
			s.BollBandwidth = 0.07
		}, Neutral},
		{"volume surge alone is not breakout", func(s *indicators.Snapshot) {
			s.VolumeRat = 2.5
			s.Close = 100.0
		}, Neutral},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := readySnap()
			c.mod(&s)
			assert.Equal(t, c.want, Classify(s))
		})
	}
}

func TestClassifyNotReadyIsNeutral(t *testing.T) {
	s := readySnap()
	s.ADX = 30
	s.BollBandwidth = 0.12
	s.ADXReady = false
	assert.Equal(t, Neutral, Classify(s))
}

func TestDetectorRecordsChanges(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, Neutral, d.Current())

	s := readySnap()
	s.ADX = 28
	s.BollBandwidth = 0.12
	s.Timestamp = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, Trending, d.Observe(s))
	assert.Equal(t, Trending, d.Observe(s), "same regime does not re-record")

	changes := d.Changes()
	assert.Len(t, changes, 1)
	assert.Equal(t, Neutral, changes[0].Old)
	assert.Equal(t, Trending, changes[0].New)
}
