package tag

import "sort"

// Writer encodes an object graph (plus the type schema it's built from)
// back into a TAG0 stream in two phases: a type scan that discovers
// every reachable type, then a single emission pass that lays out TYPE,
// DATA and INDX as siblings (spec.md section 4.G).
type Writer struct {
	out *byteWriter

	types   []*Type
	typeIdx map[*Type]int

	items []*Item // index 0 is the reserved null entry

	// queue holds items whose body still needs to be written to DATA
	// (the reference writer's items2 work list).
	queue []*Item

	// patches collects, per item element type, the DATA offsets that
	// contain an item index needing relocation (spec.md section 4.G /
	// 6.3). Offsets are emitted sorted and de-duplicated.
	patches map[*Type][]int64

	dataOffset int64
}

// NewWriter creates a Writer over an empty output buffer.
func NewWriter() *Writer {
	return &Writer{
		out:     &byteWriter{},
		typeIdx: make(map[*Type]int),
		items:   []*Item{nil},
		patches: make(map[*Type][]int64),
	}
}

// Write encodes root (of the given type) as a complete TAG0 file and
// returns the resulting bytes.
func (w *Writer) Write(root *Object, rootType *Type) ([]byte, error) {
	defer clearAttachments(root)

	w.scanType(rootType)
	w.scanObject(root)

	if err := w.emit(root, rootType); err != nil {
		return nil, err
	}
	return w.out.bytes(), nil
}

// scanType registers typ and every type reachable from it (parent,
// subType, templates, members, interfaces) in discovery order, matching
// the reference writer's "already in list" guard against cycles.
func (w *Writer) scanType(typ *Type) {
	if typ == nil {
		return
	}
	if _, ok := w.typeIdx[typ]; ok {
		return
	}
	w.types = append(w.types, typ)
	w.typeIdx[typ] = len(w.types)

	w.scanType(typ.Parent)
	w.scanType(typ.SubType)
	for _, t := range typ.Templates {
		if t.IsType() {
			w.scanType(t.ValueTyp)
		}
	}
	for _, m := range typ.Members {
		w.scanType(m.Type)
	}
	for _, iface := range typ.Interfaces {
		w.scanType(iface.Type)
	}
}

// scanObject walks obj's graph (pointer targets, class members and
// array/tuple elements), registering the type of every object it reaches
// via scanType (spec.md section 4.G). It allocates no items; those are
// created during emission by resolveItem. Objects are visited once via
// attachment, matching clearAttachments's traversal.
func (w *Writer) scanObject(obj *Object) {
	if obj == nil || obj.attachment != nil {
		return
	}
	obj.attachment = struct{}{}
	w.scanType(obj.Type)

	super := obj.Type.SuperType()
	switch super.RawSubKind() {
	case SubPointer:
		if target, ok := obj.Value.(*Object); ok && target != nil {
			w.scanObject(target)
		}
	case SubClass:
		if m, ok := obj.Value.(map[string]*Object); ok {
			for _, field := range super.AllMembers() {
				if v, ok := m[field.Name]; ok {
					w.scanObject(v)
				}
			}
		}
	case SubString:
		// leaf; no nested objects to scan
	default:
		if isArrayLike(super.RawSubKind()) {
			if elems, ok := obj.Value.([]*Object); ok {
				for _, v := range elems {
					w.scanObject(v)
				}
			}
		}
	}
}

// emit lays out TAG0 { SDKV, DATA, TYPE, INDX }, wrapping root as a
// pointer-like item #1 (spec.md section 4.G) so Reader.Root's "first
// element of item #1" convention matches what this writer produces.
func (w *Writer) emit(root *Object, rootType *Type) error {
	return withSectionWriter(w.out, "TAG0", false, func(*sectionWriter) error {
		if err := withSectionWriter(w.out, "SDKV", true, func(*sectionWriter) error {
			_, err := w.out.Write([]byte("20160100"))
			return err
		}); err != nil {
			return err
		}

		if err := withSectionWriter(w.out, "DATA", true, func(*sectionWriter) error {
			w.dataOffset = w.out.tell()
			rootItem := &Item{Type: rootType, IsPtr: true, Count: 1, Value: []*Object{root}}
			w.items = append(w.items, rootItem)
			root.attachment = uint32(1)
			w.queue = append(w.queue, rootItem)
			if err := w.drainQueue(); err != nil {
				return err
			}
			return w.out.pad(16)
		}); err != nil {
			return err
		}

		if err := w.writeTypeSection(); err != nil {
			return err
		}
		return w.writeIndexSection()
	})
}

// drainQueue flushes items discovered while writing a prior item's body,
// the Go shape of the reference writer's items2 work list.
func (w *Writer) drainQueue() error {
	for len(w.queue) > 0 {
		item := w.queue[0]
		w.queue = w.queue[1:]
		if err := w.writeItemBody(item); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeItemBody(item *Item) error {
	super := item.Type.SuperType()
	if err := w.out.pad(int(super.Alignment)); err != nil {
		return err
	}
	item.Offset = uint32(w.out.tell() - w.dataOffset)
	stride := int64(super.ByteSize)
	for i, obj := range item.Value {
		if err := w.writeObject(obj, item.Type, w.out.tell()-w.dataOffset); err != nil {
			return err
		}
		if i != len(item.Value)-1 {
			if err := w.out.seek(w.dataOffset + int64(item.Offset) + int64(i+1)*stride); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeObject encodes one Object of declared type typ at the given
// DATA-relative offset (spec.md section 4.G).
func (w *Writer) writeObject(obj *Object, typ *Type, offset int64) error {
	if err := w.out.seek(w.dataOffset + offset); err != nil {
		return err
	}
	super := typ.SuperType()

	switch super.RawSubKind() {
	case SubBool:
		v, _ := obj.Value.(bool)
		var raw uint64
		if v {
			raw = 1
		}
		width, _ := intFormat(super.FormatInfo, false)
		if err := w.writeUint(width, raw); err != nil {
			return err
		}

	case SubInt:
		v, _ := obj.Value.(int64)
		width, _ := intFormat(super.FormatInfo, v < 0)
		if err := w.writeUint(width, uint64(v)); err != nil {
			return err
		}

	case SubFloat:
		v, _ := obj.Value.(float32)
		if err := w.out.f32le(v); err != nil {
			return err
		}

	case SubString, SubPointer:
		index, err := w.resolveItem(obj, super.RawSubKind() == SubPointer)
		if err != nil {
			return err
		}
		if err := w.out.u32le(index); err != nil {
			return err
		}

	case SubClass:
		m, _ := obj.Value.(map[string]*Object)
		for _, field := range super.AllMembers() {
			v, ok := m[field.Name]
			if !ok {
				continue
			}
			if err := w.writeObject(v, field.Type, offset+int64(field.ByteOffset)); err != nil {
				return err
			}
		}

	default:
		if super.RawSubKind() == SubTuple {
			elems, _ := obj.Value.([]*Object)
			elemSuper := super.SubType.SuperType()
			stride := int64(elemSuper.ByteSize)
			for i, e := range elems {
				if err := w.writeObject(e, super.SubType, offset+int64(i)*stride); err != nil {
					return err
				}
			}
		} else if isArrayLike(super.RawSubKind()) {
			index, err := w.resolveItem(obj, false)
			if err != nil {
				return err
			}
			if err := w.out.u32le(index); err != nil {
				return err
			}
		}
	}

	return w.out.seek(w.dataOffset + offset + int64(super.ByteSize))
}

// resolveItem returns the 1-based item index backing obj's
// string/pointer/array value, allocating and queuing a new Item on first
// reference and reusing obj.attachment afterward (spec.md section 4.G:
// sharing is preserved the same way the reader's lazy materialization
// does).
func (w *Writer) resolveItem(obj *Object, forcePointer bool) (uint32, error) {
	if obj.IsEmpty() {
		return 0, nil
	}
	if idx, ok := obj.attachment.(uint32); ok {
		return idx, nil
	}

	item, err := w.makeItem(obj, forcePointer)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, nil
	}
	w.items = append(w.items, item)
	index := uint32(len(w.items) - 1)
	obj.attachment = index
	w.queue = append(w.queue, item)
	w.patches[item.Type] = append(w.patches[item.Type], w.out.tell()-w.dataOffset)
	return index, nil
}

// makeItem builds the Item backing obj's pointer/string/array value
// without writing its body yet (spec.md section 4.G).
func (w *Writer) makeItem(obj *Object, forcePointer bool) (*Item, error) {
	super := obj.Type.SuperType()

	switch super.RawSubKind() {
	case SubString:
		s, _ := obj.Value.(string)
		charType := stringCharType(super)
		elems := make([]*Object, len(s)+1)
		for i := 0; i < len(s); i++ {
			elems[i] = NewObject(charType, int64(s[i]))
		}
		elems[len(s)] = NewObject(charType, int64(0))
		return &Item{Type: charType, Count: uint32(len(elems)), Value: elems}, nil

	case SubPointer:
		target, _ := obj.Value.(*Object)
		if target == nil {
			return nil, nil
		}
		return &Item{Type: target.Type, IsPtr: true, Count: 1, Value: []*Object{target}}, nil

	default:
		if forcePointer {
			return &Item{Type: obj.Type, IsPtr: true, Count: 1, Value: []*Object{obj}}, nil
		}
		elems, _ := obj.Value.([]*Object)
		if len(elems) == 0 {
			return nil, nil
		}
		elemType := super.SubType
		elemSuper := elemType.SuperType()
		isPtr := elemSuper.RawSubKind() == SubPointer
		return &Item{Type: elemType, IsPtr: isPtr, Count: uint32(len(elems)), Value: elems}, nil
	}
}

// stringCharType returns the per-element int8 type backing a string's
// character array. Real schemas always carry this as the string type's
// subType; tagcodec relies on that rather than fabricating a synthetic
// type of its own.
func stringCharType(stringType *Type) *Type {
	if stringType.SubType != nil {
		return stringType.SubType
	}
	return stringType
}

func (w *Writer) writeUint(width int, v uint64) error {
	switch width {
	case 1:
		return w.out.u8(uint8(v))
	case 2:
		return w.out.u16le(uint16(v))
	case 4:
		return w.out.u32le(uint32(v))
	case 8:
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
		_, err := w.out.Write(b[:])
		return err
	}
	return nil
}

// sortedPatchOffsets returns typ's recorded patch offsets deduplicated
// and ascending, the ordering spec.md section 8.1 requires of a PTCH
// record's offset list.
func sortedPatchOffsets(offsets []int64) []int64 {
	seen := make(map[int64]bool, len(offsets))
	out := make([]int64, 0, len(offsets))
	for _, o := range offsets {
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
