package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"motifmine/internal/metrics"
	"motifmine/internal/symbol"
)

const (
	DefaultDiversity    = 0.01
	DefaultExtendLength = 10
)

type GenerationDiagnostics struct {
	Epoch          int     `json:"epoch"`
	Score          float64 `json:"score"`
	BestScore      float64 `json:"best_score"`
	PopulationSize int     `json:"population_size"`
	FrequentWords  int     `json:"frequent_words"`
	MeanFrequency  float64 `json:"mean_frequency"`
}

type RunResult struct {
	BestScore      float64
	BestPopulation []string
	Residual       string
	Epochs         int
	Converged      bool
	BestByEpoch    []float64
	Diagnostics    []GenerationDiagnostics
}

type MonitorConfig struct {
	PopulationSize int
	Bounds         SizeBounds
	MaxIter        int
	Threshold      float64
	Diversity      float64
	ExtendLength   int
	Width          int
	Seed           int64
	Selector       Selector
	Logger         *slog.Logger
	Metrics        *metrics.Collectors
}

// PopulationMonitor runs the generational search for repeated substrings of one
// text. It is not safe for concurrent use; the rng is owned by the monitor.
type PopulationMonitor struct {
	cfg       MonitorConfig
	rng       *rand.Rand
	crossover OverlapCrossover
	shorten   ShortenMutation
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if err := cfg.Bounds.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxIter < 0 {
		return nil, fmt.Errorf("max iter must be >= 0")
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be in [0, 1], got %g", cfg.Threshold)
	}
	if cfg.Diversity < 0 || cfg.Diversity >= 1 {
		return nil, fmt.Errorf("diversity must be in [0, 1), got %g", cfg.Diversity)
	}
	if cfg.Width <= 0 {
		cfg.Width = symbol.DefaultWidth
	}
	if cfg.ExtendLength <= 0 {
		cfg.ExtendLength = DefaultExtendLength
	}
	if cfg.Selector == nil {
		cfg.Selector = UniformSelector{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &PopulationMonitor{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		crossover: OverlapCrossover{Width: cfg.Width},
		shorten:   ShortenMutation{Width: cfg.Width, MaxSteps: cfg.ExtendLength},
	}, nil
}

// runState carries what one Run needs per generation.
type runState struct {
	text   string
	bounds SizeBounds
	extend ExtendMutation
}

// Run searches text for the population that best covers it. Frequencies are counted
// in reference (text when empty), so words recurring elsewhere in the sequence are
// favoured. Exhausting MaxIter is not an error: the best population seen is returned
// with Converged unset.
func (m *PopulationMonitor) Run(ctx context.Context, text, reference string, carry []string) (RunResult, error) {
	if text == "" {
		return RunResult{}, symbol.ErrEmptySequence
	}
	if reference == "" {
		reference = text
	}
	state := runState{
		text:   text,
		bounds: m.cfg.Bounds.Clamp(symbol.TokenCount(text, m.cfg.Width)),
		extend: ExtendMutation{Text: text, Width: m.cfg.Width, MaxSteps: m.cfg.ExtendLength},
	}

	population := GeneratePopulation(m.rng, m.cfg.PopulationSize, text, state.bounds, carry, m.cfg.Width)
	result := RunResult{
		BestScore:      math.Inf(-1),
		BestPopulation: population,
		Residual:       text,
		BestByEpoch:    make([]float64, 0, m.cfg.MaxIter+1),
	}

	for epoch := 0; result.BestScore <= m.cfg.Threshold && epoch <= m.cfg.MaxIter; epoch++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		started := time.Now()

		freq := CountFrequency(population, reference)
		score, residual := Fitness(text, population, freq)
		if score > result.BestScore {
			result.BestScore = score
			result.BestPopulation = population
			result.Residual = residual
			m.cfg.Logger.Info("improved coverage", "epoch", epoch, "score", score)
			m.cfg.Metrics.ObserveImprovement(score)
		}
		result.BestByEpoch = append(result.BestByEpoch, result.BestScore)
		result.Diagnostics = append(result.Diagnostics, summarizeGeneration(epoch, score, result.BestScore, population, freq))
		result.Epochs = epoch + 1
		m.cfg.Metrics.ObserveGeneration(time.Since(started), len(population))

		if result.BestScore > m.cfg.Threshold || epoch == m.cfg.MaxIter {
			break
		}
		population = m.nextGeneration(state, result.BestPopulation)
	}

	result.Converged = result.BestScore > m.cfg.Threshold
	if !result.Converged {
		m.cfg.Logger.Info("iteration cap reached", "epochs", result.Epochs, "best_score", result.BestScore)
	}
	return result, nil
}

func summarizeGeneration(epoch int, score, best float64, population []string, freq map[string]int) GenerationDiagnostics {
	diag := GenerationDiagnostics{
		Epoch:          epoch,
		Score:          score,
		BestScore:      best,
		PopulationSize: len(population),
	}
	if len(population) == 0 {
		return diag
	}
	total := 0
	for _, word := range population {
		total += freq[word]
		if freq[word] > 1 {
			diag.FrequentWords++
		}
	}
	diag.MeanFrequency = float64(total) / float64(len(population))
	return diag
}

// nextGeneration keeps the frequent words of the current population, minus the top
// diversity fraction, then tops up with bred words and finally random individuals.
func (m *PopulationMonitor) nextGeneration(state runState, current []string) []string {
	freq := CountFrequency(current, state.text)
	frequent := FilterByFrequency(current, freq)
	survivors := rankSurvivors(frequent, freq)
	skip := int(m.cfg.Diversity * float64(len(survivors)))

	next := make(map[string]struct{}, m.cfg.PopulationSize)
	admit := func(words []string) {
		for _, word := range words {
			if m.keep(state, word) {
				next[word] = struct{}{}
			}
		}
	}
	admit(survivors[skip:])

	pool := WordPool(frequent, freq)
	target := m.cfg.PopulationSize - skip
	attempts := m.cfg.PopulationSize * maxAttemptsFactor
	for len(pool) > 0 && len(next) < target && attempts > 0 {
		attempts--
		admit(m.breed(state, pool, freq))
	}

	attempts = m.cfg.PopulationSize * maxAttemptsFactor
	for len(next) < m.cfg.PopulationSize && attempts > 0 {
		attempts--
		individual := CreateIndividual(m.rng, state.text, state.bounds, m.cfg.Width)
		if individual == "" {
			break
		}
		next[individual] = struct{}{}
	}
	return sortedKeys(next)
}

func (m *PopulationMonitor) keep(state runState, word string) bool {
	return word != "" && state.bounds.Admits(word, m.cfg.Width) && !symbol.StartsWithMarker(word)
}

// breed draws parents from the pool. A pool too small for two parents falls back
// to mutating a single parent.
func (m *PopulationMonitor) breed(state runState, pool []string, freq map[string]int) []string {
	parents, err := m.cfg.Selector.PickParents(m.rng, pool, freq, 2)
	if errors.Is(err, ErrInsufficientPool) {
		return m.mutate(state, pool[m.rng.Intn(len(pool))])
	}
	if err != nil {
		m.cfg.Logger.Debug("parent selection failed", "selector", m.cfg.Selector.Name(), "error", err)
		return nil
	}

	a, b := parents[0], parents[1]
	products := []string{a, b}
	crossed, err := m.crossover.Apply(m.rng, a, b)
	if err == nil {
		return append(products, crossed...)
	}
	if !errors.Is(err, ErrNoOverlap) {
		m.cfg.Logger.Debug("crossover failed", "operator", m.crossover.Name(), "error", err)
		return products
	}
	products = append(products, m.mutate(state, a)...)
	return append(products, m.mutate(state, b)...)
}

func (m *PopulationMonitor) mutate(state runState, parent string) []string {
	var products []string
	for _, op := range []Operator{m.shorten, state.extend} {
		out, err := op.Apply(m.rng, parent)
		if err != nil {
			if !errors.Is(err, ErrNoOccurrence) {
				m.cfg.Logger.Debug("mutation failed", "operator", op.Name(), "error", err)
			}
			continue
		}
		products = append(products, out...)
	}
	return products
}

// rankSurvivors orders words by frequency desc, ties broken by the word desc.
func rankSurvivors(words []string, freq map[string]int) []string {
	out := append([]string(nil), words...)
	sort.SliceStable(out, func(i, j int) bool {
		if freq[out[i]] != freq[out[j]] {
			return freq[out[i]] > freq[out[j]]
		}
		return out[i] > out[j]
	})
	return out
}
