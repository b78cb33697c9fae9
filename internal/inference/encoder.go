package inference

import (
	"fmt"
	"sort"
)

// LabelEncoder maps a closed vocabulary of strings to integer codes.
// Codes are positions in the sorted class list. It is immutable after construction.
type LabelEncoder struct {
	name    string
	classes []string
	index   map[string]int
}

// NewLabelEncoder builds an encoder over classes. Classes are sorted and must be unique.
func NewLabelEncoder(name string, classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("inference: encoder %q has no classes", name)
	}
	sorted := make([]string, len(classes))
	copy(sorted, classes)
	sort.Strings(sorted)

	index := make(map[string]int, len(sorted))
	for i, c := range sorted {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("inference: encoder %q has duplicate class %q", name, c)
		}
		index[c] = i
	}
	return &LabelEncoder{name: name, classes: sorted, index: index}, nil
}

// Name returns the column the encoder was fit on
func (e *LabelEncoder) Name() string {
	return e.name
}

// Classes returns a copy of the vocabulary in code order
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Transform encodes every value or fails on the first one outside the vocabulary
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	codes := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, &EncodingError{Encoder: e.name, Value: v}
		}
		codes[i] = float64(code)
	}
	return codes, nil
}
