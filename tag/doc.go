// Package tag implements a reflective (de)serializer for the binary "tag"
// container format (signature TAG0, with an optional TCM0 compendium) used
// by Havok-family asset files, and its XML textual counterpart.
//
// Nothing about a tag file's payload is statically known: every field's
// byte offset, width, sign, sub-kind, pointer target and tuple stride comes
// from a type schema that the file (or a sidecar compendium) describes
// about itself. Reader and Writer walk that schema to decode or encode
// object graphs whose layout is determined entirely at runtime.
//
// Trace, if non-nil, receives structural progress messages (section
// entry, type counts) the way the original tool's debug hook did; it
// is nil by default and callers opt in by assigning it.
package tag

// Trace receives low-volume structural progress messages when non-nil.
// The zero value performs no logging.
var Trace func(format string, args ...any)

func trace(format string, args ...any) {
	if Trace != nil {
		Trace(format, args...)
	}
}
