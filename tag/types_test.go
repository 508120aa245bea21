package tag

import "testing"

func leafType(name string, subKind SubKind, formatExtra uint32, byteSize, align uint32) *Type {
	return &Type{
		Name:       name,
		Flags:      FlagHasFormatInfo | FlagByteSize,
		FormatInfo: uint32(subKind) | formatExtra,
		ByteSize:   byteSize,
		Alignment:  align,
	}
}

func TestSuperTypeWalksParentChain(t *testing.T) {
	base := leafType("int32", SubInt, FormatInt32|FormatSigned, 4, 4)
	alias := &Type{Name: "hkInt32", Parent: base}

	if got := alias.SuperType(); got != base {
		t.Fatalf("SuperType() = %v, want base", got)
	}
	if got := alias.SuperType().RawSubKind(); got != SubInt {
		t.Errorf("SuperType().RawSubKind() = %v, want SubInt", got)
	}
}

func TestSuperTypeCycleReturnsNil(t *testing.T) {
	a := &Type{Name: "a"}
	b := &Type{Name: "b", Parent: a}
	a.Parent = b

	if got := a.SuperType(); got != nil {
		t.Errorf("SuperType() on a cyclic chain = %v, want nil", got)
	}
}

func TestAllMembersFlattensParentChain(t *testing.T) {
	base := &Type{
		Name:       "Base",
		Flags:      FlagHasFormatInfo,
		FormatInfo: uint32(SubClass),
		Members:    []Member{{Name: "a"}, {Name: "b"}},
	}
	derived := &Type{
		Name:    "Derived",
		Parent:  base,
		Members: []Member{{Name: "c"}},
	}

	got := derived.AllMembers()
	if len(got) != 3 || got[0].Name != "a" || got[1].Name != "b" || got[2].Name != "c" {
		t.Fatalf("AllMembers() = %+v", got)
	}

	// memoized: mutating Members after the first call must not change
	// the cached result until invalidateMemberCache runs.
	derived.Members = append(derived.Members, Member{Name: "d"})
	if got := derived.AllMembers(); len(got) != 3 {
		t.Fatalf("AllMembers() after mutation without invalidation = %+v, want cached 3-entry result", got)
	}
	derived.invalidateMemberCache()
	if got := derived.AllMembers(); len(got) != 4 {
		t.Fatalf("AllMembers() after invalidateMemberCache = %+v, want 4 entries", got)
	}
}

func TestCheckAcyclicParentsDetectsCycle(t *testing.T) {
	a := &Type{Name: "a"}
	b := &Type{Name: "b", Parent: a}
	a.Parent = b

	err := checkAcyclicParents([]*Type{nil, a, b})
	if err == nil {
		t.Fatal("expected a MalformedSchemaError for a cyclic parent chain")
	}
	if _, ok := err.(*MalformedSchemaError); !ok {
		t.Errorf("err = %T, want *MalformedSchemaError", err)
	}
}

func TestIsArrayLikeMasksSubKind(t *testing.T) {
	if !isArrayLike(SubArray) {
		t.Error("SubArray should be array-like")
	}
	if !isArrayLike(SubTuple) {
		t.Error("SubTuple should be array-like (0x28 & 0xF == 0x8)")
	}
	if isArrayLike(SubClass) {
		t.Error("SubClass should not be array-like")
	}
}

func TestTupleSize(t *testing.T) {
	typ := leafType("hkVector4", SubTuple, 4<<8, 16, 16)
	if got := typ.TupleSize(); got != 4 {
		t.Errorf("TupleSize() = %d, want 4", got)
	}
}
