package graph

import "errors"

var (
	// ErrAlreadyWritten is returned when Write is invoked twice on the same
	// builder. A builder is consumed by its first Write.
	ErrAlreadyWritten = errors.New("builder graph already written")

	// ErrSelfReference is returned when a neighbor list offered for pruning
	// contains the node itself.
	ErrSelfReference = errors.New("neighbor list references the node itself")

	// ErrMissingCoder is returned by Write when quantization is enabled but
	// no NodeCoder was provided.
	ErrMissingCoder = errors.New("quantization enabled but no node coder provided")

	// ErrMetaExists is returned when creating index metadata on a store that
	// already has it.
	ErrMetaExists = errors.New("index metadata already present")

	// ErrTooManyNeighbors is returned when a neighbor list exceeds the
	// record's reserved fan-out capacity.
	ErrTooManyNeighbors = errors.New("neighbor list exceeds max fan-out")
)
