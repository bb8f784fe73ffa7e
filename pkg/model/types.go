package model

// EngineType identifies the clone engine used to stage copies.
type EngineType string

const (
	EngineReflinkCopy EngineType = "reflink-copy"
	EngineCopy        EngineType = "copy"
	EngineAuto        EngineType = "auto"
)

// EntryKind is the type of filesystem entry a staged copy was taken from.
type EntryKind string

const (
	KindFile    EntryKind = "file"
	KindDir     EntryKind = "dir"
	KindSymlink EntryKind = "symlink"
)

// KeyMode selects how a guarded path is turned into a stack key.
type KeyMode string

const (
	// KeyLiteral keys stacks by the path string exactly as given.
	KeyLiteral KeyMode = "literal"
	// KeyAbsolute keys stacks by the lexically cleaned absolute path.
	KeyAbsolute KeyMode = "absolute"
	// KeyResolved keys stacks by the absolute path with symlinks resolved.
	KeyResolved KeyMode = "resolved"
)

// Valid reports whether m is a known key mode.
func (m KeyMode) Valid() bool {
	switch m {
	case KeyLiteral, KeyAbsolute, KeyResolved:
		return true
	}
	return false
}

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string
