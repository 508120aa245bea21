package tag

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// xmlNode is a generic tree node used to decode the hktagfile dialect
// without a fixed struct schema (spec.md section 4.H): encoding/xml's
// ",any"/",any,attr" tags let one struct capture an arbitrary element,
// its attributes and its children, which this package then walks by
// hand against the caller-supplied type schema.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func (n xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Parser decodes the hktagfile XML dialect into an object graph typed
// against a caller-supplied schema (spec.md section 4.H). It never loads
// a schema of its own — loading the bundled type database from disk is
// an external collaborator this package does not implement.
type Parser struct {
	types   []*Type
	objElem []xmlNode
	objects []*Object // index 0 unused, matching the 1-based #NNNN ids
}

// NewParser creates a Parser that resolves object types and member
// types against types.
func NewParser(types []*Type) *Parser {
	return &Parser{types: types}
}

// Parse decodes data and returns the object whose declared type matches
// rootName (its "::" separators stripped, matching the dialect's mangled
// names), the analogue of TagXmlParser.fromFile's objName lookup.
func (p *Parser) Parse(data []byte, rootName string) (*Object, error) {
	var root xmlNode
	dec := xml.NewDecoder(bytes.NewReader(data))
	// The dialect declares encoding="ascii", which is a subset of UTF-8.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ascii") || strings.EqualFold(charset, "us-ascii") {
			return input, nil
		}
		return nil, fmt.Errorf("tag: unsupported XML encoding %q", charset)
	}
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}

	for _, child := range root.Children {
		if child.XMLName.Local == "object" {
			p.objElem = append(p.objElem, child)
		}
	}
	p.objects = make([]*Object, len(p.objElem)+1)

	rootName = stripScope(rootName)
	for i, elem := range p.objElem {
		if t, _ := elem.attr("type"); stripScope(t) == rootName {
			return p.parseObjectAt(i + 1)
		}
	}
	return nil, &TypeNotFoundError{Name: rootName}
}

func stripScope(s string) string { return strings.ReplaceAll(s, "::", "") }

func (p *Parser) findType(name string) *Type {
	name = stripScope(name)
	for _, t := range p.types {
		if t != nil && stripScope(t.Name) == name {
			return t
		}
	}
	return nil
}

func parseObjID(s string) int {
	if strings.HasPrefix(s, "#") {
		n, err := strconv.Atoi(s[1:])
		if err == nil {
			return n
		}
	}
	return 0
}

// parseObjectAt decodes (once, lazily) and returns object #index,
// resolving forward/backward references the same way the reader
// resolves item indices.
func (p *Parser) parseObjectAt(index int) (*Object, error) {
	if index <= 0 || index >= len(p.objects) {
		return nil, nil
	}
	if p.objects[index] != nil {
		return p.objects[index], nil
	}
	elem := p.objElem[index-1]
	typeName, _ := elem.attr("type")
	typ := p.findType(typeName)
	if typ == nil {
		return nil, &TypeNotFoundError{Name: typeName}
	}
	// Reserve the slot before recursing so a cycle through this object
	// resolves to the same (possibly still-empty) Object rather than
	// looping forever.
	obj := &Object{Type: typ}
	p.objects[index] = obj

	value, err := p.parseValue(typ, elem)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	obj.Value = value.Value
	return obj, nil
}

// parseValue decodes elem as a value of declared type typ (spec.md
// section 4.H). It returns (nil, nil) — not an error — when the value is
// structurally absent or a class member failed to parse, matching the
// original's tolerant "dead object" propagation.
func (p *Parser) parseValue(typ *Type, elem xmlNode) (*Object, error) {
	super := typ.SuperType()

	switch super.RawSubKind() {
	case SubString:
		return NewObject(typ, elem.Content), nil

	case SubBool:
		return NewObject(typ, strings.TrimSpace(elem.Content) == "1"), nil

	case SubInt:
		v, err := strconv.ParseInt(strings.TrimSpace(elem.Content), 10, 64)
		if err != nil {
			return nil, nil
		}
		return NewObject(typ, v), nil

	case SubFloat:
		f, err := parseHexFloat(strings.TrimSpace(elem.Content))
		if err != nil {
			return nil, nil
		}
		return NewObject(typ, f), nil

	case SubPointer:
		target, err := p.parseObjectAt(parseObjID(strings.TrimSpace(elem.Content)))
		if err != nil {
			return nil, err
		}
		return NewObject(typ, target), nil

	case SubClass:
		return p.parseClass(typ, super, elem)

	default:
		if isArrayLike(super.RawSubKind()) {
			return p.parseArrayOrTuple(typ, super, elem)
		}
	}
	return nil, nil
}

func (p *Parser) parseClass(typ, super *Type, elem xmlNode) (*Object, error) {
	if super.Name == "hkQsTransformf" {
		return p.parseQsTransform(typ, elem)
	}

	members := make(map[string]*Object)
	byName := make(map[string]Member, len(super.AllMembers()))
	for _, m := range super.AllMembers() {
		byName[m.Name] = m
	}

	for _, child := range elem.Children {
		name, ok := child.attr("name")
		if !ok {
			continue
		}
		field, ok := byName[name]
		if !ok || field.IsVoid() {
			continue
		}
		if !tagMatchesMember(child.XMLName.Local, field) {
			return nil, &MemberTypeMismatchError{Member: name, Reason: "element <" + child.XMLName.Local + "> does not match the member's declared type"}
		}
		v, err := p.parseValue(field.Type, child)
		if err != nil {
			return nil, err
		}
		if v == nil {
			// A member that fails to parse kills the whole object
			// (spec.md section 4.H's "dead object" propagation).
			return nil, nil
		}
		members[name] = v
	}
	return NewObject(typ, members), nil
}

// parseQsTransform handles the vec12 textual form of hkQsTransformf:
// translation[0:4), rotation[4:8), scale[8:12) (spec.md section 4.H).
func (p *Parser) parseQsTransform(typ *Type, elem xmlNode) (*Object, error) {
	floats, err := parseHexFloatArray(elem.Content)
	if err != nil || len(floats) < 12 {
		return nil, nil
	}
	super := typ.SuperType()
	byName := make(map[string]Member, 3)
	for _, m := range super.AllMembers() {
		byName[m.Name] = m
	}
	group := func(name string, lo, hi int) *Object {
		m, ok := byName[name]
		if !ok {
			return nil
		}
		elemType := m.Type.SuperType().SubType
		elems := make([]*Object, hi-lo)
		for i := lo; i < hi; i++ {
			elems[i-lo] = NewObject(elemType, floats[i])
		}
		return NewObject(m.Type, elems)
	}
	members := map[string]*Object{
		"translation": group("translation", 0, 4),
		"rotation":    group("rotation", 4, 8),
		"scale":       group("scale", 8, 12),
	}
	return NewObject(typ, members), nil
}

func (p *Parser) parseArrayOrTuple(typ, super *Type, elem xmlNode) (*Object, error) {
	elemType := super.SubType
	elemSuper := elemType.SuperType()

	if elemSuper.RawSubKind() == SubFloat {
		floats, err := parseHexFloatArray(elem.Content)
		if err != nil {
			return nil, nil
		}
		elems := make([]*Object, len(floats))
		for i, f := range floats {
			elems[i] = NewObject(elemType, f)
		}
		return NewObject(typ, elems), nil
	}

	if elemSuper.RawSubKind() == SubBool || elemSuper.RawSubKind() == SubInt {
		tokens := strings.Fields(elem.Content)
		elems := make([]*Object, len(tokens))
		for i, tok := range tokens {
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, nil
			}
			elems[i] = NewObject(elemType, v)
		}
		return NewObject(typ, elems), nil
	}

	var elems []*Object
	for _, child := range elem.Children {
		v, err := p.parseValue(elemType, child)
		if err != nil {
			return nil, err
		}
		if v != nil {
			elems = append(elems, v)
		}
	}
	return NewObject(typ, elems), nil
}

// tagMatchesMember reports whether an XML element's tag name is one this
// member's declared type could plausibly have produced. It is
// deliberately loose about the tuple aliases (tuple/vec4/vec16) and about
// hkQsTransformf's vec12 form; anything else is a schema/file mismatch
// worth surfacing as MemberTypeMismatchError rather than silently
// treating the member as absent.
func tagMatchesMember(tag string, field Member) bool {
	super := field.Type.SuperType()
	switch super.RawSubKind() {
	case SubPointer:
		return tag == "ref"
	case SubClass:
		if super.Name == "hkQsTransformf" {
			return tag == "vec12"
		}
		return tag == "struct"
	case SubArray:
		return tag == "array"
	case SubTuple:
		return tag == "tuple" || tag == "vec4" || tag == "vec16"
	default:
		return tag == subKindTag(field.Type)
	}
}

func parseHexFloat(tok string) (float32, error) {
	tok = strings.TrimPrefix(tok, "x")
	bits, err := strconv.ParseUint(tok, 16, 32)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(bits)), nil
}

func parseHexFloatArray(text string) ([]float32, error) {
	tokens := strings.Fields(text)
	out := make([]float32, len(tokens))
	for i, tok := range tokens {
		f, err := parseHexFloat(tok)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
