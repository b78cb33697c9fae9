package inference

import (
	"context"
	"fmt"
)

// TreeNode is one node of an exported decision tree. Leaves have Left == -1.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// DecisionTree is a flat node array rooted at index 0
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

// RandomForest averages the normalised leaf distributions of its trees
type RandomForest struct {
	trees     []DecisionTree
	nFeatures int
	nClasses  int
}

// NewRandomForest validates the trees and returns a ready classifier
func NewRandomForest(trees []DecisionTree, nFeatures int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("inference: forest has no trees")
	}
	if nFeatures <= 0 {
		return nil, fmt.Errorf("inference: forest needs n_features > 0")
	}

	nClasses := 0
	for ti, tree := range trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("inference: tree %d is empty", ti)
		}
		for ni, node := range tree.Nodes {
			if node.Left == -1 {
				if len(node.Value) == 0 {
					return nil, fmt.Errorf("inference: tree %d leaf %d has no value", ti, ni)
				}
				if nClasses == 0 {
					nClasses = len(node.Value)
				} else if len(node.Value) != nClasses {
					return nil, fmt.Errorf("inference: tree %d leaf %d has %d classes, want %d", ti, ni, len(node.Value), nClasses)
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= nFeatures {
				return nil, fmt.Errorf("inference: tree %d node %d splits on feature %d", ti, ni, node.Feature)
			}
			if !validChild(node.Left, len(tree.Nodes)) || !validChild(node.Right, len(tree.Nodes)) {
				return nil, fmt.Errorf("inference: tree %d node %d has a child out of range", ti, ni)
			}
		}
	}

	return &RandomForest{trees: trees, nFeatures: nFeatures, nClasses: nClasses}, nil
}

func validChild(i, n int) bool {
	return i > 0 && i < n
}

// NumClasses returns the width of every probability row
func (f *RandomForest) NumClasses() int {
	return f.nClasses
}

// PredictProba implements Classifier
func (f *RandomForest) PredictProba(_ context.Context, features [][]float64) ([][]float64, error) {
	out := make([][]float64, len(features))
	for i, row := range features {
		if len(row) != f.nFeatures {
			return nil, predictionErrorf("row %d has %d features, model expects %d", i, len(row), f.nFeatures)
		}
		probs := make([]float64, f.nClasses)
		for ti := range f.trees {
			leaf, err := f.trees[ti].leaf(row)
			if err != nil {
				return nil, err
			}
			var total float64
			for _, v := range leaf {
				total += v
			}
			for c, v := range leaf {
				if total > 0 {
					probs[c] += v / total
				} else {
					probs[c] += 1 / float64(f.nClasses)
				}
			}
		}
		for c := range probs {
			probs[c] /= float64(len(f.trees))
		}
		out[i] = probs
	}
	return out, nil
}

func (t *DecisionTree) leaf(row []float64) ([]float64, error) {
	i := 0
	// A valid tree reaches a leaf in fewer steps than it has nodes.
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[i]
		if node.Left == -1 {
			return node.Value, nil
		}
		if row[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
	return nil, predictionErrorf("tree traversal did not terminate")
}
