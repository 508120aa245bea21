package tag

import (
	"bytes"
	"fmt"
	"math"
	"strings"
)

// Serializer walks a reachable object graph and renders it as the XML
// dialect described in spec.md sections 4.I/6.4: a fixed preamble, one
// <class> per class-kind type discovered along the way, then one
// <object> per reachable Object in discovery order. It writes directly
// to a buffer rather than building a DOM, the way a hand-rolled textual
// encoder in this corpus would.
type Serializer struct {
	types    []*Type
	typeSeen map[*Type]bool
	objects  []*Object
}

// NewSerializer creates an empty Serializer.
func NewSerializer() *Serializer {
	return &Serializer{typeSeen: make(map[*Type]bool)}
}

// Serialize renders root as a complete hktagfile document. If backport is
// non-nil it is applied to the discovered type list before <class>
// declarations are emitted, matching the original tool's optional
// backporter hook.
func (s *Serializer) Serialize(root *Object, backport func([]*Type) []*Type) ([]byte, error) {
	defer clearAttachments(root)

	root.attachment = 1
	s.objects = append(s.objects, root)
	s.scanObjectForType(root)

	if backport != nil {
		s.types = backport(s.types)
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="ascii"?>` + "\n")
	w := &xmlWriter{buf: &buf}

	w.openTag("hktagfile", []attr{{"version", "1"}, {"sdkversion", "hk_2012.2.0-r1"}})
	for _, t := range s.types {
		if t.RawSubKind() == SubClass && t.Name != "hkQsTransformf" {
			s.writeClass(w, t)
		}
	}
	for _, obj := range s.objects {
		if err := s.writeObject(w, obj, true, ""); err != nil {
			return nil, err
		}
	}
	w.closeTag("hktagfile")

	return buf.Bytes(), nil
}

// scanObjectForType records obj's type (and every type reachable from
// it), recursing into pointer targets and class/array/tuple elements so
// every object that should get its own <object> entry is discovered once
// (spec.md section 4.I, section 9's object-graph-cycle note).
func (s *Serializer) scanObjectForType(obj *Object) {
	if obj == nil {
		return
	}
	s.scanType(obj.Type)

	super := obj.Type.SuperType()
	switch super.RawSubKind() {
	case SubPointer:
		target, _ := obj.Value.(*Object)
		if target == nil || target.attachment != nil {
			return
		}
		target.attachment = len(s.objects) + 1
		s.objects = append(s.objects, target)
		s.scanObjectForType(target)
	case SubClass:
		m, _ := obj.Value.(map[string]*Object)
		for _, field := range super.AllMembers() {
			if v, ok := m[field.Name]; ok {
				s.scanObjectForType(v)
			}
		}
	default:
		if isArrayLike(super.RawSubKind()) {
			elems, _ := obj.Value.([]*Object)
			for _, v := range elems {
				s.scanObjectForType(v)
			}
		}
	}
}

func (s *Serializer) scanType(t *Type) {
	if t == nil || s.typeSeen[t] {
		return
	}
	s.typeSeen[t] = true
	s.types = append(s.types, t)

	s.scanType(t.Parent)
	s.scanType(t.SubType)
	for _, m := range t.Members {
		s.scanType(m.Type)
	}

	mangled := mangledTypeName(t, false)
	if fake, ok := fakeAliasType(mangled); ok {
		s.types = append(s.types, fake)
	}
}

func (s *Serializer) writeClass(w *xmlWriter, t *Type) {
	attrs := []attr{
		{"name", mangledTypeName(t, true)},
		{"version", fmt.Sprintf("%d", t.Version)},
	}
	if t.Parent != nil {
		attrs = append(attrs, attr{"parent", mangledTypeName(t.Parent, false)})
	}
	if len(t.Members) == 0 {
		w.selfClosingTag("class", attrs)
		return
	}
	w.openTag("class", attrs)
	for _, m := range t.Members {
		s.writeMemberDecl(w, m)
	}
	w.closeTag("class")
}

func (s *Serializer) writeMemberDecl(w *xmlWriter, m Member) {
	attrs := []attr{{"name", m.Name}}
	target := m.Type
	if m.DisplayType != nil {
		target = m.DisplayType
	}
	attrs = appendTypeAttrs(attrs, target)
	if m.IsVoid() {
		attrs = append(attrs, attr{"type", "void"})
	}
	w.selfClosingTag("member", attrs)
}

// appendTypeAttrs appends the type/class/array/count attributes a member
// (or, recursively, an array's element type) declares, mirroring the
// original serializer's serializeMemberProp (spec.md section 4.I).
func appendTypeAttrs(attrs []attr, t *Type) []attr {
	super := t.SuperType()
	switch super.RawSubKind() {
	case SubPointer:
		return append(attrs, attr{"type", "ref"}, attr{"class", mangledTypeName(super.SubType, false)})
	case SubClass:
		if super.Name == "hkQsTransformf" {
			return append(attrs, attr{"type", "vec12"})
		}
		return append(attrs, attr{"type", "struct"}, attr{"class", mangledTypeName(super, false)})
	case SubArray:
		attrs = append(attrs, attr{"array", "true"})
		return appendTypeAttrs(attrs, super.SubType)
	case SubTuple:
		elem := super.SubType.SuperType()
		n := super.TupleSize()
		switch {
		case elem.RawSubKind() == SubFloat && n == 4:
			return append(attrs, attr{"type", "vec4"})
		case elem.RawSubKind() == SubFloat && n == 16:
			return append(attrs, attr{"type", "vec16"})
		default:
			attrs = append(attrs, attr{"count", fmt.Sprintf("%d", n)})
			return appendTypeAttrs(attrs, super.SubType)
		}
	default:
		return append(attrs, attr{"type", subKindTag(super)})
	}
}

// writeObject renders one <object>/nested value element. asRoot selects
// the "object" tag with id/type attributes for top-level entries; name,
// when non-empty, is the enclosing class member's name attribute (array
// elements and the top-level entry pass "").
func (s *Serializer) writeObject(w *xmlWriter, obj *Object, asRoot bool, name string) error {
	tag := subKindTag(obj.Type)
	super := obj.Type.SuperType()
	if super.RawSubKind() == SubClass && super.Name == "hkQsTransformf" {
		tag = "vec12"
	}
	if asRoot {
		tag = "object"
	}
	attrs := s.elemAttrs(obj, asRoot, name)

	switch super.RawSubKind() {
	case SubBool:
		v, _ := obj.Value.(bool)
		w.leaf(tag, attrs, boolText(v))

	case SubInt:
		v, _ := obj.Value.(int64)
		w.leaf(tag, attrs, fmt.Sprintf("%d", v))

	case SubFloat:
		v, _ := obj.Value.(float32)
		w.leaf(tag, attrs, hexFloat(v))

	case SubString:
		v, _ := obj.Value.(string)
		w.leaf(tag, attrs, v)

	case SubPointer:
		target, _ := obj.Value.(*Object)
		id := 0
		if target != nil {
			id, _ = target.attachment.(int)
		}
		w.leaf(tag, attrs, idString(id))

	case SubClass:
		return s.writeClassValue(w, obj, tag, attrs)

	default:
		if isArrayLike(super.RawSubKind()) {
			return s.writeArrayValue(w, obj, tag, attrs, super)
		}
	}
	return nil
}

// elemAttrs returns the id/type attributes for a root object entry, the
// name attribute for a class member, or nothing for an array element.
func (s *Serializer) elemAttrs(obj *Object, asRoot bool, name string) []attr {
	var attrs []attr
	if asRoot {
		id, _ := obj.attachment.(int)
		attrs = append(attrs, attr{"id", idString(id)}, attr{"type", mangledTypeName(obj.Type, false)})
	}
	if name != "" {
		attrs = append(attrs, attr{"name", name})
	}
	return attrs
}

func (s *Serializer) writeClassValue(w *xmlWriter, obj *Object, tag string, attrs []attr) error {
	super := obj.Type.SuperType()
	m, _ := obj.Value.(map[string]*Object)

	if super.Name == "hkQsTransformf" {
		var floats []float32
		for _, name := range []string{"translation", "rotation", "scale"} {
			elems, _ := m[name].Value.([]*Object)
			for _, e := range elems {
				f, _ := e.Value.(float32)
				floats = append(floats, f)
			}
		}
		parts := make([]string, len(floats))
		for i, f := range floats {
			parts[i] = hexFloat(f)
		}
		w.leaf(tag, attrs, strings.Join(parts, " "))
		return nil
	}

	w.openTag(tag, attrs)
	for _, field := range super.AllMembers() {
		if field.IsVoid() {
			continue
		}
		v, ok := m[field.Name]
		if !ok || v == nil || v.IsEmpty() {
			continue
		}
		if err := s.writeObject(w, v, false, field.Name); err != nil {
			return err
		}
	}
	w.closeTag(tag)
	return nil
}

func (s *Serializer) writeArrayValue(w *xmlWriter, obj *Object, tag string, attrs []attr, super *Type) error {
	elems, _ := obj.Value.([]*Object)
	elemSuper := super.SubType.SuperType()

	switch {
	case elemSuper.RawSubKind() == SubBool || elemSuper.RawSubKind() == SubInt:
		w.leaf(tag, withSize(attrs, super, len(elems)), numArrayText(elems))
		return nil
	case elemSuper.RawSubKind() == SubFloat && super.RawSubKind() == SubTuple && super.TupleSize() == 4:
		w.leaf("vec4", attrs, floatArrayText(elems))
		return nil
	case elemSuper.RawSubKind() == SubFloat && super.RawSubKind() == SubTuple && super.TupleSize() == 16:
		w.leaf("vec16", attrs, floatArrayText(elems))
		return nil
	case elemSuper.RawSubKind() == SubFloat:
		w.leaf(tag, withSize(attrs, super, len(elems)), floatArrayText(elems))
		return nil
	}

	w.openTag(tag, withSize(attrs, super, len(elems)))
	for _, e := range elems {
		if err := s.writeObject(w, e, false, ""); err != nil {
			return err
		}
	}
	w.closeTag(tag)
	return nil
}

func withSize(attrs []attr, super *Type, n int) []attr {
	if super.RawSubKind() == SubArray {
		return append(attrs, attr{"size", fmt.Sprintf("%d", n)})
	}
	return attrs
}

func numArrayText(elems []*Object) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		v, _ := e.Value.(int64)
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, " ")
}

func floatArrayText(elems []*Object) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		f, _ := e.Value.(float32)
		parts[i] = hexFloat(f)
	}
	return strings.Join(parts, " ")
}

func hexFloat(f float32) string {
	return fmt.Sprintf("x%08x", math.Float32bits(f))
}

func boolText(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func idString(id int) string {
	return fmt.Sprintf("#%04d", id)
}
