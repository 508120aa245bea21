package tag

import "io"

// supportedSdkVersions are the SDKV values this decoder accepts (spec.md
// section 6.1).
var supportedSdkVersions = []string{"20150100", "20160100", "20160200", "20180100"}

// Reader decodes a TAG0 (or TCM0) stream into its type schema and item
// table, materializing object bodies lazily as they're referenced
// (spec.md section 4.F). A Reader owns its stream exclusively for the
// duration of a read; it performs no concurrent access of its own.
type Reader struct {
	r          *byteReader
	dataOffset int64

	types []*Type
	items []*Item

	// compendiumIDs is populated when this Reader was opened against a
	// TCM0 stream (spec.md section 4.D/6.1).
	compendiumIDs [][8]byte

	// compendium is the sidecar schema source for a TAG0 file whose own
	// TYPE section is a TCRF cross-reference.
	compendium *Compendium
}

// NewReader opens a TAG0 stream for decoding. compendium may be nil; it
// is consulted only if the stream's TYPE section is a TCRF
// cross-reference (spec.md section 4.D, scenario 6).
func NewReader(rs io.ReadSeeker, compendium *Compendium) (*Reader, error) {
	rd := &Reader{r: &byteReader{r: rs}, compendium: compendium}
	if err := rd.readRoot(); err != nil {
		return nil, err
	}
	return rd, nil
}

// openCompendiumReader opens a TCM0 stream, returning the Reader half of
// a Compendium (see compendium.go's OpenCompendium for the public entry
// point).
func openCompendiumReader(rs io.ReadSeeker) (*Reader, error) {
	rd := &Reader{r: &byteReader{r: rs}}
	if err := rd.readRoot(); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *Reader) readRoot() error {
	return withSection(rd.r, func(s *sectionReader) error {
		switch s.signature {
		case "TAG0":
			return rd.readTag0()
		case "TCM0":
			return rd.readTcm0()
		}
		return nil
	}, "TAG0", "TCM0")
}

func (rd *Reader) readTag0() error {
	trace("reading TAG0")
	if err := withSection(rd.r, func(*sectionReader) error {
		v, err := rd.r.readN(8)
		if err != nil {
			return err
		}
		version := string(v)
		for _, s := range supportedSdkVersions {
			if s == version {
				return nil
			}
		}
		return &UnsupportedSdkVersionError{Version: version}
	}, "SDKV"); err != nil {
		return err
	}

	if err := withSection(rd.r, func(s *sectionReader) error {
		rd.dataOffset = s.start
		return nil
	}, "DATA"); err != nil {
		return err
	}

	if err := rd.readTypeSection(); err != nil {
		return err
	}
	trace("reading INDX")
	return rd.readIndexSection()
}

func (rd *Reader) readTcm0() error {
	trace("reading TCM0")
	if err := withSection(rd.r, func(s *sectionReader) error {
		for !s.end() {
			idBytes, err := rd.r.readN(8)
			if err != nil {
				return err
			}
			var id [8]byte
			copy(id[:], idBytes)
			rd.compendiumIDs = append(rd.compendiumIDs, id)
		}
		return nil
	}, "TCID"); err != nil {
		return err
	}
	return rd.readTypeSection()
}

// Types returns the resolved type list (index 0 is the nil sentinel).
func (rd *Reader) Types() []*Type { return rd.types }

// GetType returns the first type in the schema with the given name, or
// nil if none matches.
func (rd *Reader) GetType(name string) *Type {
	for _, t := range rd.types {
		if t != nil && t.Name == name {
			return t
		}
	}
	return nil
}

// Root decodes and returns the file's root object (item index 1's sole
// element), matching TagReader.getObject(0) in the original tool.
func (rd *Reader) Root() (*Object, error) {
	if len(rd.items) < 2 {
		return nil, &MalformedSchemaError{Reason: "item table has no root entry"}
	}
	values, err := rd.materialize(1)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// GetObject returns the sole element of the item at the given 1-based
// index, the convenience lookup a caller needs to inspect an arbitrary
// item without walking pointers from the root.
func (rd *Reader) GetObject(index int) (*Object, error) {
	if index <= 0 {
		return nil, nil
	}
	values, err := rd.materialize(uint32(index))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// materialize decodes (once, lazily) and returns the element sequence for
// the item at the given 1-based index.
func (rd *Reader) materialize(index uint32) ([]*Object, error) {
	if int(index) >= len(rd.items) {
		return nil, &MalformedSchemaError{Reason: "item index out of range"}
	}
	item := rd.items[index]
	if item.Value != nil {
		return item.Value, nil
	}
	super := item.Type.SuperType()
	stride := super.ByteSize
	values := make([]*Object, item.Count)
	for i := uint32(0); i < item.Count; i++ {
		obj, err := rd.readObject(item.Type, int64(item.Offset)+int64(i)*int64(stride))
		if err != nil {
			return nil, err
		}
		values[i] = obj
	}
	item.Value = values
	return values, nil
}

// readItemPtr reads a 32-bit item index and returns its (possibly
// lazily-materialized) element sequence. Index 0 means "no item" and
// always yields an empty sequence without touching the item table.
func (rd *Reader) readItemPtr() ([]*Object, error) {
	index, err := rd.r.u32le()
	if err != nil {
		return nil, err
	}
	if index == 0 {
		return nil, nil
	}
	return rd.materialize(index)
}

// readObject decodes one Object of declared type typ at the given
// absolute stream offset (spec.md section 4.F).
func (rd *Reader) readObject(typ *Type, offset int64) (*Object, error) {
	if err := rd.r.seek(offset); err != nil {
		return nil, err
	}

	super := typ.SuperType()
	var value any

	switch super.RawSubKind() {
	case SubBool:
		width, _ := intFormat(super.FormatInfo, false)
		raw, err := rd.readUint(width)
		if err != nil {
			return nil, err
		}
		value = raw != 0

	case SubInt:
		width, signed := intFormat(super.FormatInfo, false)
		if signed {
			raw, err := rd.readInt(width)
			if err != nil {
				return nil, err
			}
			value = raw
		} else {
			raw, err := rd.readUint(width)
			if err != nil {
				return nil, err
			}
			value = int64(raw)
		}

	case SubFloat:
		f, err := rd.r.f32le()
		if err != nil {
			return nil, err
		}
		value = f

	case SubString:
		elems, err := rd.readItemPtr()
		if err != nil {
			return nil, err
		}
		value = stringFromCodeUnits(elems)

	case SubPointer:
		elems, err := rd.readItemPtr()
		if err != nil {
			return nil, err
		}
		switch len(elems) {
		case 0:
			value = (*Object)(nil)
		case 1:
			value = elems[0]
		default:
			// Tolerated per spec.md section 7: coerce to null rather
			// than fail the whole transaction.
			value = (*Object)(nil)
		}

	case SubClass:
		members := make(map[string]*Object)
		for _, m := range super.AllMembers() {
			v, err := rd.readObject(m.Type, offset+int64(m.ByteOffset))
			if err != nil {
				return nil, err
			}
			members[m.Name] = v
		}
		value = members

	default:
		if isArrayLike(super.RawSubKind()) && super.RawSubKind() != SubTuple {
			elems, err := rd.readItemPtr()
			if err != nil {
				return nil, err
			}
			value = elems
		} else if super.RawSubKind() == SubTuple {
			n := super.TupleSize()
			elemSuper := super.SubType.SuperType()
			stride := int64(elemSuper.ByteSize)
			elems := make([]*Object, n)
			for i := uint32(0); i < n; i++ {
				v, err := rd.readObject(super.SubType, offset+int64(i)*stride)
				if err != nil {
					return nil, err
				}
				elems[i] = v
			}
			value = elems
		}
	}

	if err := rd.r.seek(offset + int64(super.ByteSize)); err != nil {
		return nil, err
	}
	return &Object{Type: typ, Value: value}, nil
}

func (rd *Reader) readUint(width int) (uint64, error) {
	switch width {
	case 1:
		v, err := rd.r.u8()
		return uint64(v), err
	case 2:
		v, err := rd.r.u16le()
		return uint64(v), err
	case 4:
		v, err := rd.r.u32le()
		return uint64(v), err
	case 8:
		return rd.r.u64le()
	default:
		return 0, nil
	}
}

func (rd *Reader) readInt(width int) (int64, error) {
	u, err := rd.readUint(width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return int64(int8(u)), nil
	case 2:
		return int64(int16(u)), nil
	case 4:
		return int64(int32(u)), nil
	default:
		return int64(u), nil
	}
}

func stringFromCodeUnits(elems []*Object) string {
	if len(elems) == 0 {
		return ""
	}
	b := make([]byte, 0, len(elems)-1)
	for _, e := range elems {
		v, _ := e.Value.(int64)
		if v == 0 {
			break
		}
		b = append(b, byte(v))
	}
	return string(b)
}

// intFormat resolves the (width, signed) pair implied by a formatInfo
// word, per spec.md section 4.A's width/sign bits. forceSigned additionally
// selects the signed variant regardless of the IsSigned bit — used by the
// writer when a value to be written is itself negative.
func intFormat(formatInfo uint32, forceSigned bool) (width int, signed bool) {
	switch {
	case formatInfo&FormatInt8 != 0:
		width = 1
	case formatInfo&FormatInt16 != 0:
		width = 2
	case formatInfo&FormatInt32 != 0:
		width = 4
	case formatInfo&FormatInt64 != 0:
		width = 8
		signed = true
	}
	if formatInfo&FormatSigned != 0 || forceSigned {
		signed = true
	}
	return
}
