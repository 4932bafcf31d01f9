// Package merge grows a node vocabulary by repeatedly tokenizing the encoding and
// joining the nodes of its heaviest transitions until the vocabulary stops changing.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"motifmine/internal/metrics"
	"motifmine/internal/pathgraph"
	"motifmine/internal/symbol"
)

const (
	DefaultMaxRounds = 10000

	KindSelfLoop = "self_loop"
	KindCross    = "cross"
)

var ErrEmptyVocabulary = errors.New("node vocabulary is empty")

// Event records one vocabulary append.
type Event struct {
	Round           int    `json:"round"`
	Kind            string `json:"kind"`
	In              string `json:"in"`
	Out             string `json:"out"`
	Merged          string `json:"merged"`
	Weight          int    `json:"weight"`
	MergedFrequency int    `json:"merged_frequency"`
}

// Result is the stabilized vocabulary with the path it induces over the encoding.
// Vocabulary omits the sentinel; Path keeps it as the row delimiter.
type Result struct {
	Vocabulary []string
	Path       pathgraph.Path
	Terminal   []string
	Lineage    []Event
	Rounds     int
	Converged  bool
}

// RowPaths splits Path on the sentinel, one token slice per encoded row.
func (r Result) RowPaths() [][]string {
	var rows [][]string
	var current []string
	for _, token := range r.Path.Tokens {
		if token == symbol.Sentinel {
			rows = append(rows, current)
			current = nil
			continue
		}
		current = append(current, token)
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	return rows
}

type Config struct {
	MaxRounds int
	Logger    *slog.Logger
	Metrics   *metrics.Collectors
}

type Merger struct {
	cfg Config
}

func NewMerger(cfg Config) (*Merger, error) {
	if cfg.MaxRounds < 0 {
		return nil, fmt.Errorf("max rounds must be >= 0, got %d", cfg.MaxRounds)
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Merger{cfg: cfg}, nil
}

// Run merges until a round appends nothing or the appended node leaves the path's
// token set unchanged. Reaching MaxRounds returns the current state unconverged.
func (m *Merger) Run(ctx context.Context, encoding string, vocab []string) (Result, error) {
	if encoding == "" {
		return Result{}, symbol.ErrEmptySequence
	}
	nodes := pathgraph.SortVocabulary(append(append([]string(nil), vocab...), symbol.Sentinel))
	if len(nodes) == 1 {
		return Result{}, ErrEmptyVocabulary
	}

	var result Result
	path := pathgraph.Tokenize(encoding, nodes)
	for result.Rounds < m.cfg.MaxRounds {
		if err := ctx.Err(); err != nil {
			return m.finish(result, nodes, path), err
		}
		result.Rounds++
		m.cfg.Metrics.ObserveMergeRound(len(nodes)-1, path.Missed)

		event, terminal, ok := m.scan(encoding, nodes, path)
		result.Terminal = terminal
		if !ok {
			result.Converged = true
			break
		}
		event.Round = result.Rounds
		result.Lineage = append(result.Lineage, event)
		m.cfg.Logger.Info("merged nodes", "round", event.Round, "kind", event.Kind, "in", event.In, "out", event.Out, "merged", event.Merged)
		m.cfg.Metrics.ObserveMerge(event.Kind)

		nodes = pathgraph.SortVocabulary(append(nodes, event.Merged))
		next := pathgraph.Tokenize(encoding, nodes)
		if sameTokenSet(path, next) {
			path = next
			result.Converged = true
			break
		}
		path = next
	}

	if !result.Converged {
		m.cfg.Logger.Info("merge round cap reached", "rounds", result.Rounds, "vocabulary", len(nodes)-1)
	}
	return m.finish(result, nodes, path), nil
}

func (m *Merger) finish(result Result, nodes []string, path pathgraph.Path) Result {
	result.Vocabulary = make([]string, 0, len(nodes))
	for _, node := range nodes {
		if node != symbol.Sentinel {
			result.Vocabulary = append(result.Vocabulary, node)
		}
	}
	result.Path = path
	return result
}

// scan walks the heavy edges of path and returns the first merge a policy allows,
// along with the nodes found terminal before it.
func (m *Merger) scan(encoding string, nodes []string, path pathgraph.Path) (Event, []string, bool) {
	inVocab := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		inVocab[node] = struct{}{}
	}

	var terminal []string
	final := make(map[string]struct{})
	for _, edge := range pathgraph.Build(path).HeavyEdges(symbol.Sentinel) {
		merged := edge.From + edge.To
		_, known := inVocab[merged]

		if edge.From == edge.To {
			if hasLongerContainer(nodes, edge.From) {
				if known {
					continue
				}
				return Event{Kind: KindSelfLoop, In: edge.From, Out: edge.To, Merged: merged, Weight: edge.Weight,
					MergedFrequency: strings.Count(encoding, merged)}, terminal, true
			}
			if _, ok := final[edge.From]; !ok {
				final[edge.From] = struct{}{}
				terminal = append(terminal, edge.From)
			}
			continue
		}

		_, inFinal := final[edge.From]
		_, outFinal := final[edge.To]
		if inFinal || outFinal || known {
			continue
		}
		freq := strings.Count(encoding, merged)
		if freq >= path.Count(edge.From) || freq >= path.Count(edge.To) {
			return Event{Kind: KindCross, In: edge.From, Out: edge.To, Merged: merged, Weight: edge.Weight,
				MergedFrequency: freq}, terminal, true
		}
	}
	return Event{}, terminal, false
}

// hasLongerContainer reports whether some strictly longer node contains word.
func hasLongerContainer(nodes []string, word string) bool {
	for _, node := range nodes {
		if len(node) > len(word) && strings.Contains(node, word) {
			return true
		}
	}
	return false
}

func sameTokenSet(a, b pathgraph.Path) bool {
	sa, sb := a.TokenSet(), b.TokenSet()
	if len(sa) != len(sb) {
		return false
	}
	for token := range sa {
		if _, ok := sb[token]; !ok {
			return false
		}
	}
	return true
}
