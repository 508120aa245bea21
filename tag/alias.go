package tag

import "strconv"

// xmlAliasTable replaces specific mangled type names with friendlier
// ones for the handful of static-tree storage variants the original
// tool special-cased (spec.md section 4.I). Each hit additionally gets a
// synthetic "fake" class declaration whose parent is the original
// mangled name, so a reader of the emitted XML sees both names.
var xmlAliasTable = map[string]string{
	"hkcdStaticTreeDynamicStoragehkcdStaticTreeCodec3Axis4": "hkcdStaticTreeDynamicStorage4",
	"hkcdStaticTreeDynamicStoragehkcdStaticTreeCodec3Axis5": "hkcdStaticTreeDynamicStorage5",
	"hkcdStaticTreeDynamicStoragehkcdStaticTreeCodec3Axis6": "hkcdStaticTreeDynamicStorage6",
	"hkcdStaticTreeTreehkcdStaticTreeDynamicStorage6":       "hkcdStaticTreeDefaultTreeStorage6",
}

// mangledTypeName computes (and, unless dontCare, memoizes on the type's
// xmlName field) the XML class name for t's super-type (t itself when it
// declares its own format info): that type's name, concatenated with a
// suffix per template of that type (a type-template contributes the
// mangled name of its referent, a value-template its decimal value), with
// ':' and spaces stripped (spec.md section 4.I).
func mangledTypeName(t *Type, dontCare bool) string {
	if t == nil {
		return ""
	}
	if super := t.SuperType(); super != nil {
		t = super
	}
	if !dontCare && t.xmlName != "" {
		return t.xmlName
	}

	name := t.Name
	for _, tmpl := range t.Templates {
		if tmpl.IsType() {
			name += mangledTypeName(tmpl.ValueTyp, true)
		} else {
			name += strconv.FormatUint(tmpl.ValueInt, 10)
		}
	}
	ret := stripNameChars(name)

	if dontCare {
		return ret
	}
	t.xmlName = ret
	return ret
}

func stripNameChars(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ':' || s[i] == ' ' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// fakeAliasType builds the synthetic class declaration xmlAliasTable
// pairs with mangled, if any; ok reports whether one applies.
func fakeAliasType(mangled string) (fake *Type, ok bool) {
	alias, ok := xmlAliasTable[mangled]
	if !ok {
		return nil, false
	}
	parent := &Type{Name: mangled, xmlName: mangled}
	return &Type{
		Name:       alias,
		xmlName:    alias,
		Parent:     parent,
		FormatInfo: uint32(SubClass),
		Flags:      FlagHasFormatInfo,
	}, true
}

// subKindTag returns the XML element/attribute tag name for a type's
// sub-kind (spec.md section 4.H/4.I): byte/int, string, real, ref,
// struct, array, tuple.
func subKindTag(t *Type) string {
	super := t.SuperType()
	switch super.RawSubKind() {
	case SubBool, SubInt:
		if super.FormatInfo&FormatInt8 != 0 {
			return "byte"
		}
		return "int"
	case SubString:
		return "string"
	case SubFloat:
		return "real"
	case SubPointer:
		return "ref"
	case SubClass:
		return "struct"
	case SubArray:
		return "array"
	case SubTuple:
		return "tuple"
	}
	return ""
}
