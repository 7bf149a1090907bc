package spatial

import (
	"github.com/justyntemme/spatial3d/pkg/dsp"
	"github.com/justyntemme/spatial3d/pkg/dsp/analysis"
	"github.com/justyntemme/spatial3d/pkg/effects"
	"github.com/justyntemme/spatial3d/pkg/framework/param"
)

// MasterChain is the output bus: a ramped gain, an optional compressor and
// an optional analysis tap, in that order.
type MasterChain struct {
	volume     param.Value
	gain       *param.Smoother
	compressor effects.Compressor
	tap        *analysis.Tap
}

func newMasterChain(sampleRate float64, compressor effects.Compressor, analysisSize int) *MasterChain {
	m := &MasterChain{
		gain:       param.NewTimedSmoother(param.LinearSmoothing, sampleRate, dsp.MediumRamp),
		compressor: compressor,
	}
	m.volume.Store(dsp.UnityGain)
	m.gain.Reset(dsp.UnityGain)
	if analysisSize > 0 {
		m.tap = analysis.NewTap(analysisSize, sampleRate)
	}
	return m
}

// SetVolume clamps v to [0,1], ramps the output towards it and returns the
// applied value.
func (m *MasterChain) SetVolume(v float64) float64 {
	return m.volume.Clamped(v, 0, 1)
}

// Volume returns the target master volume.
func (m *MasterChain) Volume() float64 { return m.volume.Load() }

// GainReduction returns the compressor's current reduction in dB, or 0
// without a compressor.
func (m *MasterChain) GainReduction() float64 {
	if m.compressor == nil {
		return 0
	}
	return m.compressor.GainReduction()
}

// AnalysisData returns the latest analysis snapshot; ok is false when the
// tap is disabled.
func (m *MasterChain) AnalysisData() (snap analysis.Snapshot, ok bool) {
	if m.tap == nil {
		return analysis.Snapshot{}, false
	}
	return m.tap.Snapshot(), true
}

// process applies the chain in place. Render thread only.
func (m *MasterChain) process(left, right []float32) {
	m.gain.SetTarget(m.volume.Load())
	for i := range left {
		g := float32(m.gain.Next())
		left[i] *= g
		right[i] *= g
	}
	if m.compressor != nil {
		m.compressor.ProcessStereo(left, right)
	}
	if m.tap != nil {
		m.tap.Write(left, right)
	}
}
