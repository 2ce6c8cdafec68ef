package nn

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/baldhumanity/tweann-go/neat"
)

// Resolution state of a node during one pass.
const (
	unvisited uint8 = iota
	resolving
	computed
)

// edge is an incoming link, with its source given as a node position.
type edge struct {
	source int
	weight float64
}

// Evaluator is the phenotype of a genotype: a feed-forward network that maps
// inputs to outputs. Evaluation pulls values from the outputs back towards
// the inputs and memoizes every node for the duration of one pass.
//
// An Evaluator is not safe for concurrent use; build one per goroutine.
type Evaluator struct {
	ids         []int // node ids by position, for error messages
	inputs      []int // positions of input nodes in genotype order
	outputs     []int // positions of output nodes in genotype order
	incoming    [][]edge
	activations []neat.ActivationType

	values []float64
	state  []uint8
}

// NewEvaluator builds an evaluator from a genotype. Later changes to the
// genotype are not seen by the evaluator. Disabled links are ignored.
func NewEvaluator(g *neat.Genotype) (*Evaluator, error) {
	nodes := g.Nodes()
	pos := make(map[int]int, len(nodes))
	e := &Evaluator{
		ids:         make([]int, len(nodes)),
		incoming:    make([][]edge, len(nodes)),
		activations: make([]neat.ActivationType, len(nodes)),
		values:      make([]float64, len(nodes)),
		state:       make([]uint8, len(nodes)),
	}
	for i, n := range nodes {
		pos[n.ID] = i
		e.ids[i] = n.ID
		actFn, err := neat.GetActivation(n.Activation)
		if err != nil {
			return nil, fmt.Errorf("failed to get activation function '%s' for node %d: %w", n.Activation, n.ID, err)
		}
		e.activations[i] = actFn
	}
	for _, id := range g.Inputs() {
		e.inputs = append(e.inputs, pos[id])
	}
	for _, id := range g.Outputs() {
		e.outputs = append(e.outputs, pos[id])
	}
	for _, l := range g.Links() {
		if !l.Enabled {
			continue
		}
		from, okFrom := pos[l.From]
		to, okTo := pos[l.To]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("link %d->%d: %w", l.From, l.To, neat.ErrUnknownNode)
		}
		e.incoming[to] = append(e.incoming[to], edge{source: from, weight: l.Weight})
	}
	return e, nil
}

// InputCount returns the number of values Evaluate expects.
func (e *Evaluator) InputCount() int { return len(e.inputs) }

// OutputCount returns the number of values Evaluate returns.
func (e *Evaluator) OutputCount() int { return len(e.outputs) }

// Evaluate computes the outputs, in genotype output order, for the given
// inputs, in genotype input order. Input nodes pass their value through
// unchanged; every other node applies its activation to the weighted sum of
// its sources. Repeated calls with the same inputs return the same outputs.
func (e *Evaluator) Evaluate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(e.inputs) {
		return nil, fmt.Errorf("got %d inputs, network has %d input nodes: %w",
			len(inputs), len(e.inputs), neat.ErrShapeMismatch)
	}
	for i := range e.state {
		e.state[i] = unvisited
		e.values[i] = 0
	}
	for i, p := range e.inputs {
		e.values[p] = inputs[i]
		e.state[p] = computed
	}

	outputs := make([]float64, len(e.outputs))
	for i, p := range e.outputs {
		v, err := e.resolve(p)
		if err != nil {
			return nil, err
		}
		outputs[i] = v
	}
	return outputs, nil
}

func (e *Evaluator) resolve(p int) (float64, error) {
	switch e.state[p] {
	case computed:
		return e.values[p], nil
	case resolving:
		return 0, fmt.Errorf("node %d: %w", e.ids[p], neat.ErrCycleDetected)
	}
	e.state[p] = resolving
	sum := 0.0
	for _, in := range e.incoming[p] {
		v, err := e.resolve(in.source)
		if err != nil {
			return 0, err
		}
		sum += in.weight * v
	}
	e.values[p] = e.activations[p](sum)
	e.state[p] = computed
	return e.values[p], nil
}

// EvaluateBatch evaluates inputs[i] with evaluators[i] on a pool of workers
// and returns the outputs in the same order. A workers value of zero or less
// means one worker per CPU. The first error, in index order, is returned.
// An evaluator must not appear twice in evaluators.
func EvaluateBatch(ctx context.Context, evaluators []*Evaluator, inputs [][]float64, workers int) ([][]float64, error) {
	if len(evaluators) != len(inputs) {
		return nil, fmt.Errorf("got %d evaluators for %d input rows: %w",
			len(evaluators), len(inputs), neat.ErrShapeMismatch)
	}
	if len(evaluators) == 0 {
		return nil, nil
	}

	type result struct {
		idx     int
		outputs []float64
		err     error
	}

	jobs := make(chan int)
	results := make(chan result, len(evaluators))

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(evaluators) {
		workers = len(evaluators)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				out, err := evaluators[idx].Evaluate(inputs[idx])
				results <- result{idx: idx, outputs: out, err: err}
			}
		}()
	}

	for i := range evaluators {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(results)

	outputs := make([][]float64, len(evaluators))
	errs := make([]error, len(evaluators))
	for res := range results {
		outputs[res.idx] = res.outputs
		errs[res.idx] = res.err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("evaluator %d: %w", i, err)
		}
	}
	return outputs, nil
}
