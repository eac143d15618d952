package mindmap

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxDepth bounds how deeply a mindmap may nest.
const DefaultMaxDepth = 32

// Validator checks a Document before it is laid out.
type Validator struct {
	validate *validator.Validate
	maxDepth int
}

// NewValidator returns a Validator; maxDepth <= 0 selects DefaultMaxDepth.
func NewValidator(maxDepth int) *Validator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		maxDepth: maxDepth,
	}
}

// MaxDepth returns the configured depth bound.
func (v *Validator) MaxDepth() int { return v.maxDepth }

// Validate returns nil, ErrTooDeep or an error wrapping ErrInvalidMindmap that
// names the first offending field. The depth bound is checked first so the
// schema walk never descends an unbounded tree.
func (v *Validator) Validate(doc Document) error {
	if doc.Root == nil {
		return fmt.Errorf("%w: root is required", ErrInvalidMindmap)
	}
	if d := Depth(doc.Root); d > v.maxDepth {
		return fmt.Errorf("%w: depth %d exceeds %d", ErrTooDeep, d, v.maxDepth)
	}
	if err := v.validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrInvalidMindmap, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidMindmap, err)
	}
	return nil
}
