package expand

import (
	"fmt"

	seterrors "github.com/setexpand/setexpand/internal/errors"
)

// Wire names of the dot operations.
const (
	OpNameView       = "undefined"
	OpNameExpandRows = "xr"
	OpNameExpandCols = "xc"
	OpNameFill       = "fill"
)

// DotOp is an operation applied to a session's seed set.
type DotOp interface {
	// Name returns the wire name of the operation.
	Name() string
	dotOp()
}

// ViewOp returns the current seed rows unchanged.
type ViewOp struct{}

// ExpandRowsOp runs the expansion pipeline and returns new rows.
type ExpandRowsOp struct{}

func (ViewOp) Name() string       { return OpNameView }
func (ExpandRowsOp) Name() string { return OpNameExpandRows }

func (ViewOp) dotOp()       {}
func (ExpandRowsOp) dotOp() {}

// ParseDotOp maps a wire name to a DotOp.
func ParseDotOp(name string) (DotOp, error) {
	switch name {
	case "", OpNameView:
		return ViewOp{}, nil
	case OpNameExpandRows:
		return ExpandRowsOp{}, nil
	case OpNameExpandCols, OpNameFill:
		return nil, seterrors.NewInvalidInput(fmt.Sprintf("dot operation %q is unsupported", name))
	default:
		return nil, seterrors.NewInvalidInput(fmt.Sprintf("unknown dot operation %q", name))
	}
}
