package tag

// Object is a typed value: a Type paired with a tagged-union value
// (spec.md section 3.4). The concrete Go type stored in Value depends on
// the Type's super-type sub-kind:
//
//	Bool    -> bool
//	Int     -> int64
//	Float   -> float32
//	String  -> string
//	Pointer -> *Object, or nil for a null pointer
//	Class   -> map[string]*Object, only members actually present
//	Array   -> []*Object
//	Tuple   -> []*Object, fixed length
type Object struct {
	Type  *Type
	Value any

	// attachment is scratch state owned by the current transaction: while
	// writing, a visited marker set by the type scan and then the uint32
	// index of the item this object was materialized into; while
	// serializing to XML, the numeric id assigned to it. It is never
	// read back across transactions; clearAttachments resets it.
	attachment any
}

// NewObject constructs an Object. It does not validate Value against typ;
// callers build object graphs by hand (the parser/reader are the usual
// sources of well-formed ones).
func NewObject(typ *Type, value any) *Object {
	return &Object{Type: typ, Value: value}
}

// IsEmpty reports whether an object's value is the kind of "nothing here"
// the writer treats as not worth allocating an item for: a nil pointer, a
// zero-length string/array/tuple, or a nil Object itself.
func (o *Object) IsEmpty() bool {
	if o == nil || o.Value == nil {
		return true
	}
	switch v := o.Value.(type) {
	case string:
		return len(v) == 0
	case []*Object:
		return len(v) == 0
	case *Object:
		return v == nil
	}
	return false
}

// clearAttachments walks the object graph (following pointer, class and
// array/tuple edges) resetting every attachment to nil, guarding against
// graph cycles the same way the writer and XML serializer do when
// traversing forward.
func clearAttachments(root *Object) {
	visited := make(map[*Object]bool)
	var walk func(o *Object)
	walk = func(o *Object) {
		if o == nil || visited[o] {
			return
		}
		visited[o] = true
		o.attachment = nil
		super := o.Type.SuperType()
		switch super.RawSubKind() {
		case SubPointer:
			if target, ok := o.Value.(*Object); ok {
				walk(target)
			}
		case SubClass:
			if m, ok := o.Value.(map[string]*Object); ok {
				for _, v := range m {
					walk(v)
				}
			}
		default:
			if !isArrayLike(super.RawSubKind()) {
				return
			}
			if elems, ok := o.Value.([]*Object); ok {
				for _, v := range elems {
					walk(v)
				}
			}
		}
	}
	walk(root)
}
