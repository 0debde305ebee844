package conv

import (
	"fmt"

	"github.com/born-ml/blitz/internal/tensor"
)

// Region is a contiguous element range of the shared workspace.
type Region struct {
	Offset int
	Length int
}

// End returns the first element past the region.
func (r Region) End() int { return r.Offset + r.Length }

// Region slots of the direct strategy. The GEMM strategy only uses slot 0.
const (
	regionInput   = 0 // CHWN copy of the input or input gradient
	regionOutput  = 1 // KPQN copy of the output or output gradient
	regionFilter  = 2 // CRSK filter, shuffled filter or filter gradient
	regionPatches = 0 // PQ x CRS patch matrix of one image
)

// WorkspacePlan is the partition of the workspace one operation uses for one
// algorithm and geometry. Regions never overlap.
type WorkspacePlan struct {
	Operation Operation
	Algorithm Algorithm
	Regions   []Region
}

// PlanWorkspace computes the region layout of op under algo for geometry g.
//
// Direct operations hold a channel-major copy of the batch-major operand, a copy of
// its companion and a filter-sized region. BackwardData drops the filter region
// unless the channel count selects the shuffled filter layout. GEMM operations
// hold a single patch matrix reused for every image of the batch.
func PlanWorkspace(op Operation, algo Algorithm, g tensor.Conv2DGeometry) (WorkspacePlan, error) {
	plan := WorkspacePlan{Operation: op, Algorithm: algo}

	switch algo {
	case Direct:
		in := Region{Offset: 0, Length: g.InputSize()}
		out := Region{Offset: in.End(), Length: g.OutputSize()}
		filter := Region{Offset: out.End(), Length: g.FilterSize()}
		switch op {
		case OpForward, OpBackwardFilter:
			plan.Regions = []Region{in, out, filter}
		case OpBackwardData:
			plan.Regions = []Region{in, out}
			if tensor.UsesShuffledFilter(g) {
				plan.Regions = append(plan.Regions, filter)
			}
		default:
			return WorkspacePlan{}, fmt.Errorf("conv: unknown operation %s", op)
		}
	case GemmWithBLAS, GemmWithFused:
		plan.Regions = []Region{{Offset: 0, Length: g.PatchSize()}}
	default:
		return WorkspacePlan{}, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algo)
	}
	return plan, nil
}

// Size returns the number of workspace elements the plan touches.
func (p WorkspacePlan) Size() int {
	size := 0
	for _, r := range p.Regions {
		size = max(size, r.End())
	}
	return size
}

// View returns region i of ws as a float32 slice. The slice aliases ws.
func (p WorkspacePlan) View(ws *tensor.RawTensor, i int) []float32 {
	r := p.Regions[i]
	return ws.Slice(r.Offset, r.Length)
}

// Check reports ErrWorkspaceTooSmall when ws cannot hold the plan.
func (p WorkspacePlan) Check(ws *tensor.RawTensor) error {
	need := p.Size()
	if need == 0 {
		return nil
	}
	if ws == nil {
		return fmt.Errorf("%w: need %d elements, have no workspace", ErrWorkspaceTooSmall, need)
	}
	if have := ws.NumElements(); have < need {
		return fmt.Errorf("%w: need %d elements, have %d", ErrWorkspaceTooSmall, need, have)
	}
	return nil
}

// WorkspaceSize returns the element count a workspace needs to run every
// operation of geometry g under each of algos. With no algos it covers all of them.
func WorkspaceSize(g tensor.Conv2DGeometry, algos ...Algorithm) (int, error) {
	if len(algos) == 0 {
		algos = Algorithms()
	}
	size := 0
	for _, algo := range algos {
		for _, op := range []Operation{OpForward, OpBackwardData, OpBackwardFilter} {
			plan, err := PlanWorkspace(op, algo, g)
			if err != nil {
				return 0, err
			}
			size = max(size, plan.Size())
		}
	}
	return size, nil
}
