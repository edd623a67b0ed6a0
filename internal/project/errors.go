package project

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFileNotIndexed is returned for operations on a path that was never
// discovered or failed to parse during the build.
var ErrFileNotIndexed = errors.New("file not indexed")

// ErrInternalConsistency is returned when a freshly re-indexed file no
// longer contains the symbol that was just edited. It indicates an editor
// bug and callers should treat it as fatal rather than continue.
var ErrInternalConsistency = errors.New("edited symbol missing after re-index")

// SymbolNotFoundError reports a qualified name absent from a file's symbol
// table, enumerating the names that are available for diagnostics.
type SymbolNotFoundError struct {
	File      string
	Symbol    string
	Available []string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol not found: %s in %s (available: %s)",
		e.Symbol, e.File, strings.Join(e.Available, ", "))
}
