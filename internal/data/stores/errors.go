package stores

import "errors"

// ErrInvalidImport marks an import payload that is missing the tasks or
// projects collections. State is never mutated when this is returned.
var ErrInvalidImport = errors.New("import payload must contain tasks and projects collections")
