// Package tsne implements exact t-distributed stochastic neighbor embedding
// into two dimensions.
package tsne

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	exaggeration     = 12.0
	exaggerationIter = 250
	initialMomentum  = 0.5
	finalMomentum    = 0.8
	minGain          = 0.01
	initScale        = 1e-4
	entropyTol       = 1e-5
	searchSteps      = 50
	minProb          = 1e-12
	cancelCheckEvery = 50
)

// ErrDimensionMismatch is returned when input vectors differ in length.
var ErrDimensionMismatch = errors.New("tsne: vectors differ in dimension")

// Config holds optimizer parameters.
type Config struct {
	Perplexity   float64
	LearningRate float64
	Iterations   int
	Seed         uint64
}

// DefaultConfig returns perplexity 10, learning rate 200, 1000 iterations, seed 0.
func DefaultConfig() Config {
	return Config{Perplexity: 10, LearningRate: 200, Iterations: 1000}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Perplexity <= 0 {
		c.Perplexity = d.Perplexity
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	return c
}

// EffectivePerplexity clamps perplexity to (n-1)/3, never below 1.
func EffectivePerplexity(perplexity float64, n int) float64 {
	p := math.Min(perplexity, float64(n-1)/3)
	if p < 1 {
		return 1
	}
	return p
}

// Embed maps each input vector to a 2D point. Output order matches input order.
// The result is fully determined by the input and cfg.Seed.
func Embed(ctx context.Context, data [][]float32, cfg Config) ([][2]float64, error) {
	n := len(data)
	switch n {
	case 0:
		return nil, nil
	case 1:
		return [][2]float64{{0, 0}}, nil
	}
	dim := len(data[0])
	for i, v := range data {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has %d components, want %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
	}
	cfg = cfg.withDefaults()

	p := jointProbabilities(squaredDistances(data), n, EffectivePerplexity(cfg.Perplexity, n))
	return optimize(ctx, p, n, cfg)
}

// squaredDistances returns the n*n row-major matrix of squared euclidean distances.
func squaredDistances(data [][]float32) []float64 {
	n := len(data)
	d := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var s float64
			for k := range data[i] {
				diff := float64(data[i][k]) - float64(data[j][k])
				s += diff * diff
			}
			d[i*n+j] = s
			d[j*n+i] = s
		}
	}
	return d
}

// jointProbabilities computes the symmetrized affinity matrix P.
func jointProbabilities(dist []float64, n int, perplexity float64) []float64 {
	cond := make([]float64, n*n)
	logU := math.Log(perplexity)
	row := make([]float64, n)

	for i := 0; i < n; i++ {
		// shift by the nearest neighbor distance so exp never underflows to all zeros
		minD := math.Inf(1)
		for j := 0; j < n; j++ {
			if j != i && dist[i*n+j] < minD {
				minD = dist[i*n+j]
			}
		}

		beta := 1.0
		betaMin, betaMax := math.Inf(-1), math.Inf(1)
		for step := 0; step < searchSteps; step++ {
			var sumP, sumDP float64
			for j := 0; j < n; j++ {
				if j == i {
					row[j] = 0
					continue
				}
				d := dist[i*n+j] - minD
				row[j] = math.Exp(-d * beta)
				sumP += row[j]
				sumDP += d * row[j]
			}
			h := math.Log(sumP) + beta*sumDP/sumP
			for j := range row {
				row[j] /= sumP
			}

			diff := h - logU
			if math.Abs(diff) < entropyTol {
				break
			}
			if diff > 0 {
				betaMin = beta
				if math.IsInf(betaMax, 1) {
					beta *= 2
				} else {
					beta = (beta + betaMax) / 2
				}
			} else {
				betaMax = beta
				if math.IsInf(betaMin, -1) {
					beta /= 2
				} else {
					beta = (beta + betaMin) / 2
				}
			}
		}
		copy(cond[i*n:(i+1)*n], row)
	}

	p := make([]float64, n*n)
	norm := 2 * float64(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			p[i*n+j] = math.Max((cond[i*n+j]+cond[j*n+i])/norm, minProb)
		}
	}
	return p
}

// optimize runs gradient descent with momentum and per-parameter gains.
func optimize(ctx context.Context, p []float64, n int, cfg Config) ([][2]float64, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	y := make([][2]float64, n)
	for i := range y {
		y[i] = [2]float64{rng.NormFloat64() * initScale, rng.NormFloat64() * initScale}
	}
	update := make([][2]float64, n)
	gains := make([][2]float64, n)
	for i := range gains {
		gains[i] = [2]float64{1, 1}
	}
	grad := make([][2]float64, n)
	num := make([]float64, n*n)

	for iter := 0; iter < cfg.Iterations; iter++ {
		if iter%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("tsne interrupted at iteration %d: %w", iter, err)
			}
		}

		exag, momentum := 1.0, finalMomentum
		if iter < exaggerationIter {
			exag, momentum = exaggeration, initialMomentum
		}

		// Student-t kernel
		var sumQ float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := y[i][0] - y[j][0]
				dy := y[i][1] - y[j][1]
				v := 1 / (1 + dx*dx + dy*dy)
				num[i*n+j] = v
				num[j*n+i] = v
				sumQ += 2 * v
			}
		}

		for i := 0; i < n; i++ {
			var gx, gy float64
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				v := num[i*n+j]
				q := math.Max(v/sumQ, minProb)
				mult := (exag*p[i*n+j] - q) * v
				gx += mult * (y[i][0] - y[j][0])
				gy += mult * (y[i][1] - y[j][1])
			}
			grad[i] = [2]float64{4 * gx, 4 * gy}
		}

		var meanX, meanY float64
		for i := 0; i < n; i++ {
			for d := 0; d < 2; d++ {
				gains[i][d] = nextGain(gains[i][d], grad[i][d], update[i][d])
				update[i][d] = momentum*update[i][d] - cfg.LearningRate*gains[i][d]*grad[i][d]
				y[i][d] += update[i][d]
			}
			meanX += y[i][0]
			meanY += y[i][1]
		}

		meanX /= float64(n)
		meanY /= float64(n)
		for i := range y {
			y[i][0] -= meanX
			y[i][1] -= meanY
		}
	}
	return y, nil
}

// nextGain grows the gain while the previous step still points down the gradient
// and shrinks it otherwise, including on the first step when there is no previous update.
func nextGain(gain, grad, update float64) float64 {
	if grad*update < 0 {
		gain += 0.2
	} else {
		gain *= 0.8
	}
	return max(gain, minGain)
}
