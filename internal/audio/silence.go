package audio

import "math"

type SilenceMetrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// IsSilent reports whether the clip stays below thresholdDBFS. The peak may
// exceed the threshold by 6 dB to tolerate clicks.
func IsSilent(clip Clip, thresholdDBFS float64) (bool, SilenceMetrics, error) {
	metrics, err := Measure(clip)
	if err != nil {
		return false, SilenceMetrics{}, err
	}

	if metrics.Samples == 0 {
		return true, metrics, nil
	}

	if math.IsInf(metrics.RMSdBFS, -1) && math.IsInf(metrics.PeakdBFS, -1) {
		return true, metrics, nil
	}

	peakGate := thresholdDBFS + 6
	return metrics.RMSdBFS <= thresholdDBFS && metrics.PeakdBFS <= peakGate, metrics, nil
}

func Measure(clip Clip) (SilenceMetrics, error) {
	if err := validateFormat(clip.Format, uint16(clip.BitsPerSample)); err != nil {
		return SilenceMetrics{}, err
	}

	n := clip.bytesPerSample()
	var (
		peak       float64
		sumSquares float64
		samples    int64
	)

	for i := 0; i+n <= len(clip.Data); i += n {
		value, err := decodeSample(clip.Data[i:i+n], clip.Format, uint16(clip.BitsPerSample))
		if err != nil {
			return SilenceMetrics{}, err
		}

		abs := math.Abs(value)
		if abs > peak {
			peak = abs
		}
		sumSquares += value * value
		samples++
	}

	if samples == 0 {
		return SilenceMetrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	return SilenceMetrics{
		RMSdBFS:  amplitudeToDBFS(math.Sqrt(sumSquares / float64(samples))),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}, nil
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
