package tag

import "fmt"

// BadSignatureError reports that a section's FourCC did not match any of
// the signatures a reader was willing to accept.
type BadSignatureError struct {
	Expected []string
	Got      string
}

func (e *BadSignatureError) Error() string {
	return fmt.Sprintf("tag: bad section signature: expected one of %v, got %q", e.Expected, e.Got)
}

// UnsupportedSdkVersionError reports an SDKV value outside the set this
// package knows how to decode.
type UnsupportedSdkVersionError struct {
	Version string
}

func (e *UnsupportedSdkVersionError) Error() string {
	return fmt.Sprintf("tag: unsupported SDK version %q", e.Version)
}

// MissingCompendiumError reports a TCRF cross-reference with no
// compendium supplied to resolve it.
type MissingCompendiumError struct{}

func (e *MissingCompendiumError) Error() string {
	return "tag: file references a compendium but none was supplied"
}

// UnknownCompendiumIdError reports a TCRF id absent from the supplied
// compendium's TCID list.
type UnknownCompendiumIdError struct {
	ID [8]byte
}

func (e *UnknownCompendiumIdError) Error() string {
	return fmt.Sprintf("tag: compendium id %x not found in supplied compendium", e.ID)
}

// MalformedSchemaError reports a structural problem in a TYPE section,
// such as a cyclic parent chain.
type MalformedSchemaError struct {
	Reason string
}

func (e *MalformedSchemaError) Error() string {
	return fmt.Sprintf("tag: malformed schema: %s", e.Reason)
}

// UnknownTypeFlagError reports a type whose flags set the reserved 0x80
// "unknown" bit.
type UnknownTypeFlagError struct {
	TypeIndex int
}

func (e *UnknownTypeFlagError) Error() string {
	return fmt.Sprintf("tag: type %d sets the unknown (0x80) flag", e.TypeIndex)
}

// MalformedPointerError describes a pointer item with more than one
// element. Readers tolerate this by coercing to null rather than
// returning it; it is exposed for callers that want strict validation.
type MalformedPointerError struct {
	Count int
}

func (e *MalformedPointerError) Error() string {
	return fmt.Sprintf("tag: pointer item has %d elements, expected 0 or 1", e.Count)
}

// TypeNotFoundError reports a named type absent from a schema.
type TypeNotFoundError struct {
	Name string
}

func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("tag: type %q not found in schema", e.Name)
}

// MemberTypeMismatchError reports an XML value element that does not
// agree with the declared type of the member it fills.
type MemberTypeMismatchError struct {
	Member string
	Reason string
}

func (e *MemberTypeMismatchError) Error() string {
	return fmt.Sprintf("tag: member %q: %s", e.Member, e.Reason)
}
