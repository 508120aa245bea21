package tag

// writeTypeSection emits TYPE { TPTR, TSTR, TNAM, FSTR, TBOD, THSH, TPAD }
// for every type discovered by scanType (spec.md section 4.G). It writes
// the real type count to TNAM — the reference encoder literally writes
// len(types) there, one more than the real count, because it counts the
// reserved nil sentinel at index 0; its own reader only works by
// accident, since the sentinel never needs decoding. tagcodec writes the
// count its own readTypeNames actually expects, so a file this package
// produces round-trips through itself.
func (w *Writer) writeTypeSection() error {
	return withSectionWriter(w.out, "TYPE", false, func(*sectionWriter) error {
		typeStrings, typeStringIdx := internTable(func(yield func(string)) {
			for _, t := range w.types {
				yield(t.Name)
				for _, tmpl := range t.Templates {
					yield(tmpl.Name)
				}
			}
		})
		fieldStrings, fieldStringIdx := internTable(func(yield func(string)) {
			for _, t := range w.types {
				for _, m := range t.Members {
					yield(m.Name)
				}
			}
		})

		if err := withSectionWriter(w.out, "TPTR", true, func(*sectionWriter) error {
			return w.out.writeZeros(4 * len(w.types))
		}); err != nil {
			return err
		}

		if err := withSectionWriter(w.out, "TSTR", true, func(*sectionWriter) error {
			return writeStringPool(w.out, typeStrings)
		}); err != nil {
			return err
		}

		if err := withSectionWriter(w.out, "TNAM", true, func(*sectionWriter) error {
			return w.writeTypeNames(typeStringIdx)
		}); err != nil {
			return err
		}

		if err := withSectionWriter(w.out, "FSTR", true, func(*sectionWriter) error {
			return writeStringPool(w.out, fieldStrings)
		}); err != nil {
			return err
		}

		if err := withSectionWriter(w.out, "TBOD", true, func(*sectionWriter) error {
			return w.writeTypeBodies(fieldStringIdx)
		}); err != nil {
			return err
		}

		if err := withSectionWriter(w.out, "THSH", true, func(*sectionWriter) error {
			return w.writeHashes()
		}); err != nil {
			return err
		}

		return withSectionWriter(w.out, "TPAD", true, func(*sectionWriter) error {
			return w.out.pad(16)
		})
	})
}

func (w *Writer) writeTypeNames(typeStringIdx map[string]int) error {
	if err := w.out.writePacked(uint64(len(w.types))); err != nil {
		return err
	}
	for _, t := range w.types {
		if err := w.out.writePacked(uint64(typeStringIdx[t.Name])); err != nil {
			return err
		}
		if err := w.out.writePacked(uint64(len(t.Templates))); err != nil {
			return err
		}
		for _, tmpl := range t.Templates {
			if err := w.out.writePacked(uint64(typeStringIdx[tmpl.Name])); err != nil {
				return err
			}
			value := tmpl.ValueInt
			if tmpl.IsType() {
				value = uint64(w.typeIdx[tmpl.ValueTyp])
			}
			if err := w.out.writePacked(value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeTypeBodies(fieldStringIdx map[string]int) error {
	for _, t := range w.types {
		if err := w.out.writePacked(uint64(w.typeIdx[t])); err != nil {
			return err
		}
		if err := w.out.writePacked(uint64(w.typeIdx[t.Parent])); err != nil {
			return err
		}
		if err := w.out.writePacked(uint64(t.Flags)); err != nil {
			return err
		}
		if t.Flags&FlagHasFormatInfo != 0 {
			if err := w.out.writePacked(uint64(t.FormatInfo)); err != nil {
				return err
			}
		}
		if t.Flags&FlagHasSubType != 0 {
			if err := w.out.writePacked(uint64(w.typeIdx[t.SubType])); err != nil {
				return err
			}
		}
		if t.Flags&FlagVersion != 0 {
			if err := w.out.writePacked(uint64(t.Version)); err != nil {
				return err
			}
		}
		if t.Flags&FlagByteSize != 0 {
			if err := w.out.writePacked(uint64(t.ByteSize)); err != nil {
				return err
			}
			if err := w.out.writePacked(uint64(t.Alignment)); err != nil {
				return err
			}
		}
		if t.Flags&FlagHasUnknownFlags != 0 {
			if err := w.out.writePacked(t.AbstractValue); err != nil {
				return err
			}
		}
		if t.Flags&FlagMembers != 0 {
			if err := w.writeMembers(t, fieldStringIdx); err != nil {
				return err
			}
		}
		if t.Flags&FlagInterfaces != 0 {
			if err := w.out.writePacked(uint64(len(t.Interfaces))); err != nil {
				return err
			}
			for _, iface := range t.Interfaces {
				if err := w.out.writePacked(uint64(w.typeIdx[iface.Type])); err != nil {
					return err
				}
				if err := w.out.writePacked(uint64(iface.Flags)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// writeMembers emits a type's member list. It always uses the plain
// single-byte count form: the extended 0xC3 encoding the reader also
// accepts exists for 64+ member types the reference encoder produces
// from hand-patched schemas only (spec.md section 9's open question);
// tagcodec's own member lists never exceed 0x3F entries.
func (w *Writer) writeMembers(t *Type, fieldStringIdx map[string]int) error {
	if len(t.Members) > 0x3F {
		return &MalformedSchemaError{Reason: "type " + t.Name + " has more than 63 members, which this writer's plain count form cannot represent"}
	}
	if err := w.out.u8(uint8(len(t.Members))); err != nil {
		return err
	}
	for _, m := range t.Members {
		if err := w.out.writePacked(uint64(fieldStringIdx[m.Name])); err != nil {
			return err
		}
		if err := w.out.writePacked(uint64(m.Flags)); err != nil {
			return err
		}
		if err := w.out.writePacked(uint64(m.ByteOffset)); err != nil {
			return err
		}
		if err := w.out.writePacked(uint64(w.typeIdx[m.Type])); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeHashes() error {
	var hashed []*Type
	for _, t := range w.types {
		if t.HasHash {
			hashed = append(hashed, t)
		}
	}
	if err := w.out.writePacked(uint64(len(hashed))); err != nil {
		return err
	}
	for _, t := range hashed {
		if err := w.out.writePacked(uint64(w.typeIdx[t])); err != nil {
			return err
		}
		if err := w.out.u32le(t.Hash); err != nil {
			return err
		}
	}
	return nil
}

// internTable builds a first-seen-order string pool and its name->index
// map from a sequence of yielded names, skipping blanks and duplicates.
func internTable(each func(yield func(string))) ([]string, map[string]int) {
	idx := make(map[string]int)
	var pool []string
	each(func(s string) {
		if s == "" {
			return
		}
		if _, ok := idx[s]; ok {
			return
		}
		idx[s] = len(pool)
		pool = append(pool, s)
	})
	return pool, idx
}

func writeStringPool(w *byteWriter, pool []string) error {
	for _, s := range pool {
		if _, err := w.Write([]byte(s)); err != nil {
			return err
		}
		if err := w.u8(0); err != nil {
			return err
		}
	}
	return nil
}
