package tag

import "strconv"

// SubKind is the low 7 bits of a Type's formatInfo: the discriminator for
// how instances of that type are laid out and dispatched.
type SubKind uint8

const (
	SubVoid    SubKind = 0x0
	SubInvalid SubKind = 0x1
	SubBool    SubKind = 0x2
	SubString  SubKind = 0x3
	SubInt     SubKind = 0x4
	SubFloat   SubKind = 0x5
	SubPointer SubKind = 0x6
	SubClass   SubKind = 0x7
	SubArray   SubKind = 0x8
	SubTuple   SubKind = 0x28
)

// Integer width/sign bits (read for Int and Bool sub-kinds), orthogonal
// to SubKind, also packed into formatInfo.
const (
	FormatSigned = 0x200
	FormatInt8   = 0x2000
	FormatInt16  = 0x4000
	FormatInt32  = 0x8000
	FormatInt64  = 0x10000
)

// Type flag bits gating the optional fields of a TBOD entry (spec.md
// section 4.D). The original source names these two ways (TagFlag and
// TagFlagV2) across its reader and writer; both name sets address the
// same bit positions, so tagcodec keeps one name per bit.
const (
	FlagHasFormatInfo    = 0x1
	FlagHasSubType       = 0x2
	FlagVersion          = 0x4
	FlagByteSize         = 0x8
	FlagHasUnknownFlags  = 0x10
	FlagMembers          = 0x20
	FlagInterfaces       = 0x40
	FlagUnknown          = 0x80
	memberFlagVoid       = 0x1
)

// Template is one template parameter of a Type: either an integer value
// parameter (name starting with 'v') or a type parameter (name starting
// with 't').
type Template struct {
	Name     string
	ValueInt uint64
	ValueTyp *Type
}

// IsType reports whether this template parameter names another Type.
func (t Template) IsType() bool { return len(t.Name) > 0 && t.Name[0] == 't' }

// IsInt reports whether this template parameter carries an integer value.
func (t Template) IsInt() bool { return len(t.Name) > 0 && t.Name[0] == 'v' }

// Interface is one (Type, flag) entry in a Type's interface list.
type Interface struct {
	Type  *Type
	Flags uint32
}

// Member is one field of a Class-kind Type's instance layout.
type Member struct {
	Name       string
	Flags      uint32
	ByteOffset uint32
	Type       *Type

	// DisplayType overrides Type purely for XML serialization, set by a
	// backport pass (spec.md section 4.J, hkpStaticCompoundShape). Nil
	// unless a backport explicitly assigned it.
	DisplayType *Type
}

// IsVoid reports whether this member is flagged absent/unused.
func (m Member) IsVoid() bool { return m.Flags&memberFlagVoid != 0 }

// displayType returns DisplayType if set, else Type.
func (m Member) displayType() *Type {
	if m.DisplayType != nil {
		return m.DisplayType
	}
	return m.Type
}

// Type is the schema entry for one distinct runtime type (spec.md
// section 3.1). A nil *Type is the sentinel "no type" / index-0 slot.
type Type struct {
	Name      string
	Templates []Template
	Parent    *Type
	Flags     uint32

	FormatInfo uint32
	SubType    *Type

	Version    uint32
	ByteSize   uint32
	Alignment  uint32

	AbstractValue uint64
	Members       []Member
	Interfaces    []Interface

	Hash    uint32
	HasHash bool

	// xmlName memoizes mangledTypeName's result, the way the original
	// serializer caches it on typ.tag.
	xmlName string

	allMembersCache []Member
}

// isArrayLike reports whether k is Array or Tuple. Several branches in
// the reference implementation test "subKind & 0x0F == Array" instead of
// an explicit Array/Tuple comparison; spec.md section 9 flags this as a
// hint of higher-order sub-kind flag bits never exercised by the main
// decoder. tagcodec treats the masked comparison as equivalent to
// Array-or-Tuple, per that note, until a fixture proves otherwise.
func isArrayLike(k SubKind) bool { return k&0xF == SubArray }

// RawSubKind returns the low 7 bits of formatInfo.
func (t *Type) RawSubKind() SubKind {
	if t == nil {
		return SubVoid
	}
	return SubKind(t.FormatInfo & 0x7F)
}

// TupleSize returns the fixed element count encoded in formatInfo's high
// bits, meaningful only when RawSubKind is SubTuple.
func (t *Type) TupleSize() uint32 {
	if t == nil {
		return 0
	}
	return t.FormatInfo >> 8
}

// SuperType walks the parent chain to the nearest ancestor (including t
// itself) that declares its own format info — the source of sub-kind,
// width, size and alignment for layout purposes (spec.md section 3.1).
// A cyclic parent chain returns nil rather than recursing forever.
func (t *Type) SuperType() *Type {
	cur := t
	seen := make(map[*Type]bool)
	for cur != nil {
		if seen[cur] {
			return nil
		}
		seen[cur] = true
		if cur.Flags&FlagHasFormatInfo != 0 {
			return cur
		}
		cur = cur.Parent
	}
	return nil
}

// AllMembers returns the flat, ordered member list for t: its parent's
// members followed by its own (spec.md section 3.1). The result is
// memoized since it is recomputed on every Class-kind read/write.
func (t *Type) AllMembers() []Member {
	if t == nil {
		return nil
	}
	if t.allMembersCache != nil {
		return t.allMembersCache
	}
	var out []Member
	if t.Parent != nil {
		out = append(out, t.Parent.AllMembers()...)
	}
	out = append(out, t.Members...)
	t.allMembersCache = out
	return out
}

// invalidateMemberCache clears memoized AllMembers results. Called by the
// backporter after it mutates a type's member list.
func (t *Type) invalidateMemberCache() { t.allMembersCache = nil }

// checkAcyclicParents validates that no type's parent chain cycles back
// on itself, per spec.md section 4.C. types[0] is the nil sentinel and is
// skipped.
func checkAcyclicParents(types []*Type) error {
	for i, t := range types {
		if t == nil {
			continue
		}
		seen := make(map[*Type]bool)
		cur := t
		for cur != nil {
			if seen[cur] {
				return &MalformedSchemaError{Reason: "cyclic parent chain at type index " + strconv.Itoa(i)}
			}
			seen[cur] = true
			cur = cur.Parent
		}
	}
	return nil
}
