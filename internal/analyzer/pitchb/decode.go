package pitchb

import "math"

// Decode turns a sequence of per-frame bin probability distributions into
// parallel hz/confidence series. It prefers a Viterbi decode across the
// whole sequence — smoothing octave jumps the way torchcrepe's viterbi
// decoder does — and falls back to per-frame argmax when the sequence is
// too short to benefit (a single frame has no transitions to smooth).
func Decode(probs [][]float32) (hz, confidence []float64) {
	if len(probs) == 0 {
		return nil, nil
	}
	if len(probs) == 1 {
		return decodeArgmax(probs)
	}
	return decodeViterbi(probs)
}

func decodeArgmax(probs [][]float32) (hz, confidence []float64) {
	hz = make([]float64, len(probs))
	confidence = make([]float64, len(probs))
	for t, frame := range probs {
		bin, p := argmax(frame)
		hz[t] = binToHz(float64(bin))
		confidence[t] = float64(p)
	}
	return hz, confidence
}

func argmax(frame []float32) (bin int, p float32) {
	best := 0
	bestP := frame[0]
	for i := 1; i < len(frame); i++ {
		if frame[i] > bestP {
			bestP = frame[i]
			best = i
		}
	}
	return best, bestP
}

// decodeViterbi runs a log-domain Viterbi decode over the bin sequence.
// The transition matrix favors staying near the previous bin (a narrow
// band around the diagonal), which discourages spurious octave jumps
// frame-to-frame while still tracking genuine pitch glides.
func decodeViterbi(probs [][]float32) (hz, confidence []float64) {
	t := len(probs)
	n := numBins

	const transitionWidth = 25 // bins; ~5 semitones of tolerated frame-to-frame jump

	logEmit := make([][]float64, t)
	for i, frame := range probs {
		row := make([]float64, n)
		for b, p := range frame {
			if p <= 0 {
				row[b] = math.Inf(-1)
			} else {
				row[b] = math.Log(float64(p))
			}
		}
		logEmit[i] = row
	}

	dp := make([][]float64, t)
	back := make([][]int, t)
	for i := range dp {
		dp[i] = make([]float64, n)
		back[i] = make([]int, n)
	}
	copy(dp[0], logEmit[0])

	for step := 1; step < t; step++ {
		prev := dp[step-1]
		for b := 0; b < n; b++ {
			lo := b - transitionWidth
			if lo < 0 {
				lo = 0
			}
			hi := b + transitionWidth
			if hi >= n {
				hi = n - 1
			}

			bestScore := math.Inf(-1)
			bestPrev := lo
			for pb := lo; pb <= hi; pb++ {
				dist := pb - b
				if dist < 0 {
					dist = -dist
				}
				transitionLogP := -float64(dist) / float64(transitionWidth)
				score := prev[pb] + transitionLogP
				if score > bestScore {
					bestScore = score
					bestPrev = pb
				}
			}
			dp[step][b] = bestScore + logEmit[step][b]
			back[step][b] = bestPrev
		}
	}

	path := make([]int, t)
	bestFinal := 0
	bestScore := dp[t-1][0]
	for b := 1; b < n; b++ {
		if dp[t-1][b] > bestScore {
			bestScore = dp[t-1][b]
			bestFinal = b
		}
	}
	path[t-1] = bestFinal
	for step := t - 1; step > 0; step-- {
		path[step-1] = back[step][path[step]]
	}

	hz = make([]float64, t)
	confidence = make([]float64, t)
	for i, bin := range path {
		hz[i] = binToHz(float64(bin))
		confidence[i] = float64(probs[i][bin])
	}
	return hz, confidence
}
