package tag

import "testing"

func hasType(types []*Type, name string) bool {
	for _, t := range types {
		if t != nil && t.Name == name {
			return true
		}
	}
	return false
}

// TestBackport2012ReferencedObject exercises spec.md section 8.2 scenario
// 5: hkReferencedObject's member/version edits and the removal of the
// types that only existed to back its propertyBag member.
func TestBackport2012ReferencedObject(t *testing.T) {
	refObj := &Type{
		Name:    "hkReferencedObject",
		Version: 3,
		Members: []Member{
			{Name: "propertyBag"},
			{Name: "refCount"},
			{Name: "memSizeAndFlags"},
		},
	}
	propertyBagType := &Type{Name: "hkDefaultPropertyBag"}
	propertyIDType := &Type{Name: "hkPropertyId"}
	ptrAndIntType := &Type{Name: "hkPtrAndInt"}
	propertyDescType := &Type{Name: "hkPropertyDesc"}
	tupleType := &Type{Name: "hkTuple"}
	hashMapType := &Type{Name: "hkHashMap<int,int>"}
	unrelated := &Type{Name: "hkVector4f"}

	types := []*Type{refObj, propertyBagType, propertyIDType, ptrAndIntType, propertyDescType, tupleType, hashMapType, unrelated}

	got := Backport2012(types)

	if refObj.Version != 0 {
		t.Errorf("hkReferencedObject.Version = %d, want 0", refObj.Version)
	}
	if memberIndex(refObj, "propertyBag") >= 0 {
		t.Error("propertyBag should have been dropped")
	}
	if memberIndex(refObj, "refCount") >= 0 {
		t.Error("refCount should have been renamed away")
	}
	if memberIndex(refObj, "referenceCount") < 0 {
		t.Error("expected a referenceCount member after the rename")
	}
	if memberIndex(refObj, "memSizeAndFlags") < 0 {
		t.Error("unrelated members must survive untouched")
	}

	for _, name := range []string{"hkDefaultPropertyBag", "hkPropertyId", "hkPtrAndInt", "hkPropertyDesc", "hkTuple", "hkHashMap<int,int>"} {
		if hasType(got, name) {
			t.Errorf("expected %q to be removed from the type list", name)
		}
	}
	if !hasType(got, "hkReferencedObject") || !hasType(got, "hkVector4f") {
		t.Error("unrelated types must survive the filter")
	}
}

func TestBackport2012SkipsAlreadyLowVersions(t *testing.T) {
	skeleton := &Type{Name: "hkaSkeleton", Version: 5}
	types := []*Type{skeleton}
	Backport2012(types)
	if skeleton.Version != 5 {
		t.Errorf("version %d should be left untouched when already at the target", skeleton.Version)
	}
}

func TestBackport2012MissingTypesAreSkipped(t *testing.T) {
	types := []*Type{{Name: "hkVector4f"}}
	got := Backport2012(types)
	if len(got) != 1 || got[0].Name != "hkVector4f" {
		t.Fatalf("got = %+v, want the input list unchanged", got)
	}
}

func TestBackport2012StaticCompoundShapeDisplayType(t *testing.T) {
	int8Type := &Type{Name: "hkInt8"}
	extraInfoType := &Type{Name: "hkpShapeKey"}
	arrayType := &Type{
		Name:       "hkArray<hkpShapeKey>",
		Flags:      FlagHasFormatInfo | FlagHasSubType,
		FormatInfo: uint32(SubArray),
		SubType:    extraInfoType,
	}
	shape := &Type{
		Name: "hkpStaticCompoundShape",
		Members: []Member{
			{Name: "numBitsForChildShapeKey", Type: int8Type},
			{Name: "instanceExtraInfos", Type: arrayType},
		},
	}
	types := []*Type{shape, arrayType, extraInfoType, int8Type}
	Backport2012(types)

	bits := memberOf(shape, "numBitsForChildShapeKey")
	if bits == nil || bits.DisplayType != extraInfoType {
		t.Errorf("numBitsForChildShapeKey.DisplayType = %v, want %v", bits, extraInfoType)
	}
}
