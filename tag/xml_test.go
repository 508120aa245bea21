package tag

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// objComparer equates two *Object graphs by type name and value, recursing
// into maps/slices/pointers the same way the writer and XML serializer
// traverse them. Object.Type carries unexported cache fields and cyclic
// parent links that cmp can't walk directly, so comparison is keyed on
// Type.Name rather than the *Type pointer itself. It is assigned in init
// because the comparer refers to itself when recursing.
var objComparer cmp.Option

func init() {
	objComparer = cmp.Comparer(func(a, b *Object) bool {
		if a == nil || b == nil {
			return a == b
		}
		if a.Type.Name != b.Type.Name {
			return false
		}
		return cmp.Equal(a.Value, b.Value, objComparer)
	})
}

func buildXMLSampleSchema() (classType, int32Type, boolType, floatType, stringType, pointerType, arrayType *Type) {
	int32Type = &Type{
		Name:       "hkInt32",
		Flags:      FlagHasFormatInfo | FlagByteSize,
		FormatInfo: uint32(SubInt) | FormatInt32 | FormatSigned,
		ByteSize:   4,
		Alignment:  4,
	}
	boolType = &Type{
		Name:       "hkBool",
		Flags:      FlagHasFormatInfo | FlagByteSize,
		FormatInfo: uint32(SubBool) | FormatInt8,
		ByteSize:   1,
		Alignment:  1,
	}
	floatType = &Type{
		Name:       "hkReal",
		Flags:      FlagHasFormatInfo | FlagByteSize,
		FormatInfo: uint32(SubFloat),
		ByteSize:   4,
		Alignment:  4,
	}
	int8Type := &Type{
		Name:       "char",
		Flags:      FlagHasFormatInfo | FlagByteSize,
		FormatInfo: uint32(SubInt) | FormatInt8,
		ByteSize:   1,
		Alignment:  1,
	}
	stringType = &Type{
		Name:       "hkStringPtr",
		Flags:      FlagHasFormatInfo | FlagHasSubType | FlagByteSize,
		FormatInfo: uint32(SubString),
		SubType:    int8Type,
		ByteSize:   4,
		Alignment:  4,
	}
	classType = &Type{
		Name:       "SampleClass",
		Flags:      FlagHasFormatInfo | FlagByteSize | FlagMembers,
		FormatInfo: uint32(SubClass),
		ByteSize:   24,
		Alignment:  4,
	}
	pointerType = &Type{
		Name:       "hkRefPtr",
		Flags:      FlagHasFormatInfo | FlagHasSubType | FlagByteSize,
		FormatInfo: uint32(SubPointer),
		SubType:    classType,
		ByteSize:   4,
		Alignment:  4,
	}
	arrayType = &Type{
		Name:       "hkArray",
		Flags:      FlagHasFormatInfo | FlagHasSubType | FlagByteSize,
		FormatInfo: uint32(SubArray),
		SubType:    int32Type,
		ByteSize:   4,
		Alignment:  4,
	}
	classType.Members = []Member{
		{Name: "value", Type: int32Type, ByteOffset: 0},
		{Name: "flag", Type: boolType, ByteOffset: 4},
		{Name: "ratio", Type: floatType, ByteOffset: 8},
		{Name: "label", Type: stringType, ByteOffset: 12},
		{Name: "next", Type: pointerType, ByteOffset: 16},
		{Name: "items", Type: arrayType, ByteOffset: 20},
	}
	return
}

func TestXMLSerializeParseRoundTrip(t *testing.T) {
	classType, int32Type, boolType, floatType, stringType, pointerType, arrayType := buildXMLSampleSchema()

	root := NewObject(classType, map[string]*Object{
		"value": NewObject(int32Type, int64(-7)),
		"flag":  NewObject(boolType, true),
		"ratio": NewObject(floatType, float32(1.5)),
		"label": NewObject(stringType, "world"),
		"next":  NewObject(pointerType, (*Object)(nil)),
		"items": NewObject(arrayType, []*Object{
			NewObject(int32Type, int64(10)),
			NewObject(int32Type, int64(20)),
		}),
	})

	s := NewSerializer()
	data, err := s.Serialize(root, nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	doc := string(data)

	if !strings.Contains(doc, `<class name="SampleClass"`) {
		t.Errorf("missing SampleClass declaration:\n%s", doc)
	}
	if !strings.Contains(doc, `id="#0001"`) {
		t.Errorf("missing root object id:\n%s", doc)
	}

	types := []*Type{classType, int32Type, boolType, floatType, stringType, pointerType, arrayType}
	p := NewParser(types)
	got, err := p.Parse(data, "SampleClass")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got == nil {
		t.Fatal("Parse returned a nil object")
	}

	// The serializer omits empty members, so the null "next" pointer is
	// absent from the parsed object; every other member must come back.
	wantMembers := make(map[string]*Object)
	for name, v := range root.Value.(map[string]*Object) {
		if name != "next" {
			wantMembers[name] = v
		}
	}
	want := NewObject(classType, wantMembers)
	if diff := cmp.Diff(want, got, objComparer); diff != "" {
		t.Errorf("serialize/parse round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestHexFloatRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 1.5, 3.14159, -0.0001} {
		enc := hexFloat(v)
		got, err := parseHexFloat(enc)
		if err != nil {
			t.Fatalf("parseHexFloat(%q): %v", enc, err)
		}
		if got != v {
			t.Errorf("round trip %v: encoded %q, decoded %v", v, enc, got)
		}
	}
}

func TestXMLAliasTableInsertsFakeType(t *testing.T) {
	mangled := "hkcdStaticTreeDynamicStoragehkcdStaticTreeCodec3Axis4"
	fake, ok := fakeAliasType(mangled)
	if !ok {
		t.Fatal("expected an alias hit for a known static-tree storage mangled name")
	}
	if fake.Name != "hkcdStaticTreeDynamicStorage4" {
		t.Errorf("fake.Name = %q, want hkcdStaticTreeDynamicStorage4", fake.Name)
	}
	if fake.Parent == nil || fake.Parent.Name != mangled {
		t.Errorf("fake.Parent = %+v, want parent named %q", fake.Parent, mangled)
	}

	if _, ok := fakeAliasType("NotAnAlias"); ok {
		t.Error("expected no alias hit for an unrelated name")
	}
}

func TestQsTransformVec12RoundTrip(t *testing.T) {
	vec4Type := &Type{
		Name:       "hkVector4f",
		Flags:      FlagHasFormatInfo | FlagHasSubType | FlagByteSize,
		FormatInfo: uint32(SubTuple) | 4<<8,
		ByteSize:   16,
		Alignment:  16,
	}
	floatType := &Type{
		Name:       "hkReal",
		Flags:      FlagHasFormatInfo | FlagByteSize,
		FormatInfo: uint32(SubFloat),
		ByteSize:   4,
		Alignment:  4,
	}
	vec4Type.SubType = floatType

	qsType := &Type{
		Name:       "hkQsTransformf",
		Flags:      FlagHasFormatInfo | FlagByteSize | FlagMembers,
		FormatInfo: uint32(SubClass),
		ByteSize:   48,
		Alignment:  16,
		Members: []Member{
			{Name: "translation", Type: vec4Type, ByteOffset: 0},
			{Name: "rotation", Type: vec4Type, ByteOffset: 16},
			{Name: "scale", Type: vec4Type, ByteOffset: 32},
		},
	}

	floats := func(vals ...float32) []*Object {
		out := make([]*Object, len(vals))
		for i, v := range vals {
			out[i] = NewObject(floatType, v)
		}
		return out
	}
	xform := NewObject(qsType, map[string]*Object{
		"translation": NewObject(vec4Type, floats(1, 2, 3, 4)),
		"rotation":    NewObject(vec4Type, floats(5, 6, 7, 8)),
		"scale":       NewObject(vec4Type, floats(9, 10, 11, 12)),
	})

	// hkQsTransformf is normally a nested class member, not a root object
	// in its own right; wrapping it here exercises the "vec12" tag both
	// in the <class> member declaration and the value position.
	holderType := &Type{
		Name:       "Holder",
		Flags:      FlagHasFormatInfo | FlagByteSize | FlagMembers,
		FormatInfo: uint32(SubClass),
		ByteSize:   48,
		Alignment:  16,
		Members: []Member{
			{Name: "xform", Type: qsType, ByteOffset: 0},
		},
	}
	root := NewObject(holderType, map[string]*Object{"xform": xform})

	s := NewSerializer()
	data, err := s.Serialize(root, nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(string(data), "<vec12") {
		t.Errorf("expected a vec12 element in:\n%s", data)
	}

	p := NewParser([]*Type{holderType, qsType, vec4Type, floatType})
	got, err := p.Parse(data, "Holder")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(root, got, objComparer); diff != "" {
		t.Errorf("serialize/parse round trip mismatch (-want +got):\n%s", diff)
	}
}
