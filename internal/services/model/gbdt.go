package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// BoosterParams are the gradient-boosting hyperparameters.
type BoosterParams struct {
	MaxDepth        int     `json:"max_depth"`
	LearningRate    float64 `json:"learning_rate"`
	NEstimators     int     `json:"n_estimators"`
	Subsample       float64 `json:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree"`
	MinChildWeight  float64 `json:"min_child_weight"`
	RegAlpha        float64 `json:"reg_alpha"`
	RegLambda       float64 `json:"reg_lambda"`
	ScalePosWeight  float64 `json:"scale_pos_weight"`
	Seed            int64   `json:"seed"`
}

// minSplitGain is the smallest loss reduction accepted for a split.
const minSplitGain = 1e-6

// TreeNode is one node of a regression tree. Leaves carry Value; internal
// nodes route x[Feature] < Threshold to Left, everything else to Right.
type TreeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"v"`
}

// Tree is a flat array of nodes rooted at index 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Booster is a binary-logistic gradient-boosted tree ensemble.
type Booster struct {
	Params      BoosterParams `json:"params"`
	BaseMargin  float64       `json:"base_margin"`
	NumFeatures int           `json:"num_features"`
	Trees       []Tree        `json:"trees"`
	Gain        []float64     `json:"gain"`
}

// NewBooster creates an unfitted booster.
func NewBooster(p BoosterParams) *Booster {
	if p.ScalePosWeight <= 0 {
		p.ScalePosWeight = 1
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		p.Subsample = 1
	}
	if p.ColsampleByTree <= 0 || p.ColsampleByTree > 1 {
		p.ColsampleByTree = 1
	}
	return &Booster{Params: p}
}

// Fitted reports whether the booster holds at least one tree.
func (b *Booster) Fitted() bool {
	return b != nil && len(b.Trees) > 0
}

// Fit grows NEstimators trees on rows X and binary labels y.
func (b *Booster) Fit(X [][]float64, y []int) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return errors.New("gbdt: empty or misaligned training data")
	}
	d := len(X[0])
	if d == 0 {
		return errors.New("gbdt: no features")
	}
	b.NumFeatures = d
	b.Trees = b.Trees[:0]
	b.Gain = make([]float64, d)

	sorted := presort(X, d)
	rng := rand.New(rand.NewSource(b.Params.Seed))
	margin := make([]float64, n)
	for i := range margin {
		margin[i] = b.BaseMargin
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	inBag := make([]bool, n)

	for round := 0; round < b.Params.NEstimators; round++ {
		for i := 0; i < n; i++ {
			p := sigmoid(margin[i])
			w := 1.0
			if y[i] == 1 {
				w = b.Params.ScalePosWeight
			}
			grad[i] = (p - float64(y[i])) * w
			hess[i] = math.Max(p*(1-p), 1e-16) * w
		}
		for i := range inBag {
			inBag[i] = b.Params.Subsample >= 1 || rng.Float64() < b.Params.Subsample
		}
		cols := sampleColumns(rng, d, b.Params.ColsampleByTree)

		tree := b.grow(X, sorted, cols, grad, hess, inBag)
		for i := 0; i < n; i++ {
			margin[i] += tree.predict(X[i])
		}
		b.Trees = append(b.Trees, tree)
	}
	return nil
}

// Margin returns the raw additive score of x.
func (b *Booster) Margin(x []float64) float64 {
	m := b.BaseMargin
	for i := range b.Trees {
		m += b.Trees[i].predict(x)
	}
	return m
}

// PredictProba returns P(y=1) for each row.
func (b *Booster) PredictProba(X [][]float64) ([]float64, error) {
	if !b.Fitted() {
		return nil, errors.New("gbdt: booster not fitted")
	}
	out := make([]float64, len(X))
	for i, x := range X {
		if len(x) != b.NumFeatures {
			return nil, errors.New("gbdt: feature count mismatch")
		}
		out[i] = sigmoid(b.Margin(x))
	}
	return out, nil
}

// Importance returns total split gain per feature normalized to sum to one.
func (b *Booster) Importance() []float64 {
	out := make([]float64, len(b.Gain))
	total := 0.0
	for _, g := range b.Gain {
		total += g
	}
	if total <= 0 {
		return out
	}
	for i, g := range b.Gain {
		out[i] = g / total
	}
	return out
}

type nodeStats struct {
	id   int
	g, h float64
}

type splitCandidate struct {
	gain      float64
	feature   int
	threshold float64
	gl, hl    float64
}

type scanState struct {
	gl, hl float64
	last   float64
	seen   bool
}

// grow builds one tree level by level with exact greedy split search.
func (b *Booster) grow(X [][]float64, sorted [][]int, cols []int, grad, hess []float64, inBag []bool) Tree {
	n := len(X)
	p := b.Params
	tree := Tree{Nodes: []TreeNode{{Leaf: true}}}

	// nodeOf maps a row to its frontier slot, or -1 once the row is out of play.
	nodeOf := make([]int, n)
	root := nodeStats{id: 0}
	for i := 0; i < n; i++ {
		if !inBag[i] {
			nodeOf[i] = -1
			continue
		}
		root.g += grad[i]
		root.h += hess[i]
	}
	frontier := []nodeStats{root}

	for depth := 0; depth < p.MaxDepth && len(frontier) > 0; depth++ {
		best := make([]splitCandidate, len(frontier))
		scan := make([]scanState, len(frontier))
		for _, f := range cols {
			for k := range scan {
				scan[k] = scanState{}
			}
			for _, i := range sorted[f] {
				k := nodeOf[i]
				if k < 0 {
					continue
				}
				s := &scan[k]
				v := X[i][f]
				if s.seen && v != s.last {
					b.consider(&best[k], frontier[k], s.gl, s.hl, f, (s.last+v)/2)
				}
				s.gl += grad[i]
				s.hl += hess[i]
				s.last = v
				s.seen = true
			}
		}

		next := make([]nodeStats, 0, 2*len(frontier))
		remap := make([][2]int, len(frontier))
		for k, ns := range frontier {
			c := best[k]
			if c.gain <= minSplitGain || ns.h < p.MinChildWeight {
				tree.Nodes[ns.id].Value = b.leafValue(ns.g, ns.h)
				remap[k] = [2]int{-1, -1}
				continue
			}
			left := len(tree.Nodes)
			tree.Nodes = append(tree.Nodes, TreeNode{Leaf: true}, TreeNode{Leaf: true})
			tree.Nodes[ns.id] = TreeNode{Feature: c.feature, Threshold: c.threshold, Left: left, Right: left + 1}
			b.Gain[c.feature] += c.gain
			remap[k] = [2]int{len(next), len(next) + 1}
			next = append(next,
				nodeStats{id: left, g: c.gl, h: c.hl},
				nodeStats{id: left + 1, g: ns.g - c.gl, h: ns.h - c.hl},
			)
		}
		for i := 0; i < n; i++ {
			k := nodeOf[i]
			if k < 0 {
				continue
			}
			if remap[k][0] < 0 {
				nodeOf[i] = -1
				continue
			}
			node := tree.Nodes[frontier[k].id]
			if X[i][node.Feature] < node.Threshold {
				nodeOf[i] = remap[k][0]
			} else {
				nodeOf[i] = remap[k][1]
			}
		}
		frontier = next
	}
	for _, ns := range frontier {
		tree.Nodes[ns.id].Value = b.leafValue(ns.g, ns.h)
	}
	return tree
}

func (b *Booster) consider(best *splitCandidate, parent nodeStats, gl, hl float64, feature int, threshold float64) {
	gr, hr := parent.g-gl, parent.h-hl
	if hl < b.Params.MinChildWeight || hr < b.Params.MinChildWeight {
		return
	}
	gain := b.score(gl, hl) + b.score(gr, hr) - b.score(parent.g, parent.h)
	if gain > best.gain {
		*best = splitCandidate{gain: gain, feature: feature, threshold: threshold, gl: gl, hl: hl}
	}
}

func (b *Booster) score(g, h float64) float64 {
	den := h + b.Params.RegLambda
	if den <= 0 {
		return 0
	}
	t := softThreshold(g, b.Params.RegAlpha)
	return t * t / den
}

func (b *Booster) leafValue(g, h float64) float64 {
	den := h + b.Params.RegLambda
	if den <= 0 {
		return 0
	}
	return -softThreshold(g, b.Params.RegAlpha) / den * b.Params.LearningRate
}

func softThreshold(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	}
	return 0
}

func sigmoid(m float64) float64 {
	return 1 / (1 + math.Exp(-m))
}

// presort returns, for every feature, row indices ordered by ascending value.
func presort(X [][]float64, d int) [][]int {
	out := make([][]int, d)
	for f := 0; f < d; f++ {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return X[idx[a]][f] < X[idx[b]][f] })
		out[f] = idx
	}
	return out
}

func sampleColumns(rng *rand.Rand, d int, frac float64) []int {
	if frac >= 1 {
		cols := make([]int, d)
		for i := range cols {
			cols[i] = i
		}
		return cols
	}
	k := int(math.Round(frac * float64(d)))
	if k < 1 {
		k = 1
	}
	cols := rng.Perm(d)[:k]
	sort.Ints(cols)
	return cols
}
