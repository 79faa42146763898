package pipeline

import "fmt"

// ParamDimError reports a length mismatch between SetParams' argument and
// the pipeline's own ParamDim, carrying the offending dimensions so a
// caller can errors.As for them instead of parsing an error string.
type ParamDimError struct {
	Have int
	Want int
}

func (e *ParamDimError) Error() string {
	return fmt.Sprintf("pipeline: ParamDimMismatch: have %d, want %d", e.Have, e.Want)
}
