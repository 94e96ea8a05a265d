package editor

import (
	"fmt"
	"strings"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

// Tool selects what an operation edits.
type Tool uint8

const (
	ToolHeight Tool = iota
	ToolTexture
	ToolColor
	ToolRoughness
	ToolRegion

	ToolCount
)

var toolNames = [ToolCount]string{"Height", "Texture", "Color", "Roughness", "Region"}

func (t Tool) String() string {
	if t < ToolCount {
		return toolNames[t]
	}
	return fmt.Sprintf("Tool(%d)", t)
}

// Layer returns the region layer the tool paints. Region has none.
func (t Tool) Layer() (terrain.LayerKind, bool) {
	switch t {
	case ToolHeight:
		return terrain.LayerHeight, true
	case ToolTexture:
		return terrain.LayerControl, true
	case ToolColor, ToolRoughness:
		return terrain.LayerColor, true
	}
	return 0, false
}

// ParseTool looks a tool up by name, ignoring case.
func ParseTool(s string) (Tool, error) {
	for i, name := range toolNames {
		if strings.EqualFold(s, name) {
			return Tool(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown tool %q", ErrInvalidParameter, s)
}

func (t Tool) MarshalText() ([]byte, error) {
	if t >= ToolCount {
		return nil, fmt.Errorf("%w: tool %d", ErrInvalidParameter, t)
	}
	return []byte(t.String()), nil
}

func (t *Tool) UnmarshalText(text []byte) error {
	v, err := ParseTool(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Operation selects how the brush value combines with existing data.
type Operation uint8

const (
	OpAdd Operation = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpReplace
	OpAverage

	OperationCount
)

var operationNames = [OperationCount]string{"Add", "Subtract", "Multiply", "Divide", "Replace", "Average"}

func (o Operation) String() string {
	if o < OperationCount {
		return operationNames[o]
	}
	return fmt.Sprintf("Operation(%d)", o)
}

// ParseOperation looks an operation up by name, ignoring case.
func ParseOperation(s string) (Operation, error) {
	for i, name := range operationNames {
		if strings.EqualFold(s, name) {
			return Operation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown operation %q", ErrInvalidParameter, s)
}

func (o Operation) MarshalText() ([]byte, error) {
	if o >= OperationCount {
		return nil, fmt.Errorf("%w: operation %d", ErrInvalidParameter, o)
	}
	return []byte(o.String()), nil
}

func (o *Operation) UnmarshalText(text []byte) error {
	v, err := ParseOperation(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
