// Package neural provides feedforward neural network brains for animals.
package neural

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// ErrShapeMismatch is returned when a gene sequence does not match the
// parameter count of the requested topology.
var ErrShapeMismatch = errors.New("gene count does not match network shape")

// Activation selects the nonlinearity applied to a layer's output.
type Activation uint8

const (
	ReLU     Activation = iota // max(0, x)
	Identity                   // raw output, used by the final layer
)

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Identity:
		return "identity"
	default:
		return fmt.Sprintf("activation(%d)", uint8(a))
	}
}

// Layer is a dense layer: output = activation(W·input + b).
// Weights are stored row-major, one row per output neuron.
type Layer struct {
	Inputs     int
	Outputs    int
	Weights    []float32 // [Outputs * Inputs]
	Biases     []float32 // [Outputs]
	Activation Activation
}

// ParamCount returns the number of weights plus biases.
func (l *Layer) ParamCount() int {
	return l.Outputs*l.Inputs + l.Outputs
}

// Network is a fixed-topology feedforward network.
// Every layer except the last uses ReLU; the last is left unbounded.
type Network struct {
	Layers []Layer
}

// Topology returns the neuron counts per layer boundary, e.g. [cells, hidden, 2].
func (nn *Network) Topology() []int {
	if len(nn.Layers) == 0 {
		return nil
	}
	topo := make([]int, 0, len(nn.Layers)+1)
	topo = append(topo, nn.Layers[0].Inputs)
	for i := range nn.Layers {
		topo = append(topo, nn.Layers[i].Outputs)
	}
	return topo
}

// ParamCount returns the total number of parameters for a topology.
func ParamCount(topology []int) int {
	n := 0
	for i := 0; i+1 < len(topology); i++ {
		n += topology[i]*topology[i+1] + topology[i+1]
	}
	return n
}

// ParamCount returns the total number of weights and biases in the network.
func (nn *Network) ParamCount() int {
	n := 0
	for i := range nn.Layers {
		n += nn.Layers[i].ParamCount()
	}
	return n
}

// newShell allocates a zeroed network for the topology.
func newShell(topology []int) *Network {
	if len(topology) < 2 {
		panic(fmt.Sprintf("neural: topology needs at least 2 layers, got %v", topology))
	}
	nn := &Network{Layers: make([]Layer, len(topology)-1)}
	last := len(topology) - 2
	for i := range nn.Layers {
		act := ReLU
		if i == last {
			act = Identity
		}
		nn.Layers[i] = Layer{
			Inputs:     topology[i],
			Outputs:    topology[i+1],
			Weights:    make([]float32, topology[i]*topology[i+1]),
			Biases:     make([]float32, topology[i+1]),
			Activation: act,
		}
	}
	return nn
}

// Random creates a network with weights and biases drawn uniformly from [-1, 1).
// Draws follow gene order: per layer, all weights row-major, then biases.
func Random(rng *rand.Rand, topology []int) *Network {
	nn := newShell(topology)
	for i := range nn.Layers {
		l := &nn.Layers[i]
		for j := range l.Weights {
			l.Weights[j] = rng.Float32()*2 - 1
		}
		for j := range l.Biases {
			l.Biases[j] = rng.Float32()*2 - 1
		}
	}
	return nn
}

// FromGenes rebuilds a network from a flat gene sequence produced by Genes.
func FromGenes(topology []int, genes []float32) (*Network, error) {
	if want := ParamCount(topology); len(genes) != want {
		return nil, fmt.Errorf("%w: got %d genes, topology %v needs %d", ErrShapeMismatch, len(genes), topology, want)
	}
	nn := newShell(topology)
	off := 0
	for i := range nn.Layers {
		l := &nn.Layers[i]
		off += copy(l.Weights, genes[off:])
		off += copy(l.Biases, genes[off:])
	}
	return nn, nil
}

// Genes flattens the network: per layer, weights then biases, layer order preserved.
func (nn *Network) Genes() []float32 {
	genes := make([]float32, 0, nn.ParamCount())
	for i := range nn.Layers {
		genes = append(genes, nn.Layers[i].Weights...)
		genes = append(genes, nn.Layers[i].Biases...)
	}
	return genes
}

// Forward computes the network output. It panics if len(input) does not
// match the first layer's input width.
func (nn *Network) Forward(input []float32) []float32 {
	x := input
	for i := range nn.Layers {
		l := &nn.Layers[i]
		if len(x) != l.Inputs {
			panic(fmt.Sprintf("neural: layer %d expects %d inputs, got %d", i, l.Inputs, len(x)))
		}

		// y = b, then y = W·x + y
		y := make([]float32, l.Outputs)
		copy(y, l.Biases)
		if l.Inputs > 0 && l.Outputs > 0 {
			blas32.Gemv(blas.NoTrans, 1,
				blas32.General{Rows: l.Outputs, Cols: l.Inputs, Stride: l.Inputs, Data: l.Weights},
				blas32.Vector{N: l.Inputs, Inc: 1, Data: x},
				1,
				blas32.Vector{N: l.Outputs, Inc: 1, Data: y},
			)
		}

		if l.Activation == ReLU {
			for j, v := range y {
				y[j] = relu(v)
			}
		}
		x = y
	}
	return x
}

// Clone creates a deep copy of the network.
func (nn *Network) Clone() *Network {
	clone := &Network{Layers: make([]Layer, len(nn.Layers))}
	for i, l := range nn.Layers {
		clone.Layers[i] = Layer{
			Inputs:     l.Inputs,
			Outputs:    l.Outputs,
			Weights:    append([]float32(nil), l.Weights...),
			Biases:     append([]float32(nil), l.Biases...),
			Activation: l.Activation,
		}
	}
	return clone
}

func relu(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}
