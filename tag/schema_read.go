package tag

import "strings"

// readTypeSection parses the TYPE section (or follows a TCRF
// cross-reference into the compendium) per spec.md section 4.D, leaving
// rd.types populated.
func (rd *Reader) readTypeSection() error {
	return withSection(rd.r, func(s *sectionReader) error {
		if s.signature == "TCRF" {
			return rd.readCompendiumRef()
		}
		return rd.readInlineTypeSection(s)
	}, "TYPE", "TCRF")
}

func (rd *Reader) readCompendiumRef() error {
	idBytes, err := rd.r.readN(8)
	if err != nil {
		return err
	}
	var id [8]byte
	copy(id[:], idBytes)

	if rd.compendium == nil {
		return &MissingCompendiumError{}
	}
	found := false
	for _, cid := range rd.compendium.IDs() {
		if cid == id {
			found = true
			break
		}
	}
	if !found {
		return &UnknownCompendiumIdError{ID: id}
	}
	rd.types = rd.compendium.Types()
	trace("resolved TCRF %x against compendium (%d types)", id, len(rd.types))
	return nil
}

func (rd *Reader) readInlineTypeSection(outer *sectionReader) error {
	if err := withSection(rd.r, func(*sectionReader) error { return nil }, "TPTR"); err != nil {
		return err
	}

	var typeStrings []string
	if err := withSection(rd.r, func(s *sectionReader) error {
		raw, err := rd.r.readN(int(s.size))
		if err != nil {
			return err
		}
		typeStrings = strings.Split(string(raw), "\x00")
		return nil
	}, "TSTR"); err != nil {
		return err
	}

	if err := withSection(rd.r, func(*sectionReader) error {
		return rd.readTypeNames(typeStrings)
	}, "TNAM", "TNA1"); err != nil {
		return err
	}

	var fieldStrings []string
	if err := withSection(rd.r, func(s *sectionReader) error {
		raw, err := rd.r.readN(int(s.size))
		if err != nil {
			return err
		}
		fieldStrings = strings.Split(string(raw), "\x00")
		return nil
	}, "FSTR"); err != nil {
		return err
	}

	if err := withSection(rd.r, func(s *sectionReader) error {
		return rd.readTypeBodies(s, fieldStrings)
	}, "TBOD", "TBDY"); err != nil {
		return err
	}

	if err := withSection(rd.r, func(*sectionReader) error {
		return rd.readHashes()
	}, "THSH"); err != nil {
		return err
	}

	if err := withSection(rd.r, func(*sectionReader) error { return nil }, "TPAD"); err != nil {
		return err
	}

	return checkAcyclicParents(rd.types)
}

func (rd *Reader) readTypeNames(typeStrings []string) error {
	typeCount, err := rd.r.packed()
	if err != nil {
		return err
	}
	rd.types = make([]*Type, typeCount+1)
	for i := range rd.types[1:] {
		rd.types[i+1] = &Type{}
	}

	for _, typ := range rd.types[1:] {
		nameIdx, err := rd.r.packed()
		if err != nil {
			return err
		}
		typ.Name = typeStrings[nameIdx]

		templateCount, err := rd.r.packed()
		if err != nil {
			return err
		}
		for i := uint64(0); i < templateCount; i++ {
			nameIdx, err := rd.r.packed()
			if err != nil {
				return err
			}
			value, err := rd.r.packed()
			if err != nil {
				return err
			}
			tmpl := Template{Name: typeStrings[nameIdx], ValueInt: value}
			if tmpl.IsType() {
				tmpl.ValueTyp = rd.types[value]
			}
			typ.Templates = append(typ.Templates, tmpl)
		}
	}
	trace("read %d types from TNAM", typeCount)
	return nil
}

func (rd *Reader) readTypeBodies(s *sectionReader, fieldStrings []string) error {
	for !s.end() {
		typeIndex, err := rd.r.packed()
		if err != nil {
			return err
		}
		if typeIndex == 0 {
			continue
		}
		typ := rd.types[typeIndex]

		parentIdx, err := rd.r.packed()
		if err != nil {
			return err
		}
		typ.Parent = rd.types[parentIdx]

		flags, err := rd.r.packed()
		if err != nil {
			return err
		}
		typ.Flags = uint32(flags)

		if typ.Flags&FlagHasFormatInfo != 0 {
			v, err := rd.r.packed()
			if err != nil {
				return err
			}
			typ.FormatInfo = uint32(v)
		}
		if typ.Flags&FlagHasSubType != 0 {
			v, err := rd.r.packed()
			if err != nil {
				return err
			}
			typ.SubType = rd.types[v]
		}
		if typ.Flags&FlagVersion != 0 {
			v, err := rd.r.packed()
			if err != nil {
				return err
			}
			typ.Version = uint32(v)
		}
		if typ.Flags&FlagByteSize != 0 {
			size, err := rd.r.packed()
			if err != nil {
				return err
			}
			align, err := rd.r.packed()
			if err != nil {
				return err
			}
			typ.ByteSize = uint32(size)
			typ.Alignment = uint32(align)
		}
		if typ.Flags&FlagHasUnknownFlags != 0 {
			v, err := rd.r.packed()
			if err != nil {
				return err
			}
			typ.AbstractValue = v
		}
		if typ.Flags&FlagMembers != 0 {
			if err := rd.readMembers(typ, fieldStrings); err != nil {
				return err
			}
		}
		if typ.Flags&FlagInterfaces != 0 {
			count, err := rd.r.packed()
			if err != nil {
				return err
			}
			for i := uint64(0); i < count; i++ {
				ifaceTypeIdx, err := rd.r.packed()
				if err != nil {
					return err
				}
				ifaceFlags, err := rd.r.packed()
				if err != nil {
					return err
				}
				typ.Interfaces = append(typ.Interfaces, Interface{
					Type:  rd.types[ifaceTypeIdx],
					Flags: uint32(ifaceFlags),
				})
			}
		}
		if typ.Flags&FlagUnknown != 0 {
			return &UnknownTypeFlagError{TypeIndex: int(typeIndex)}
		}
	}
	return nil
}

// readMembers decodes a type's member list, including the extended
// member-count encoding flagged by a leading 0xC3 byte (spec.md section
// 4.D item 5 and the open question in section 9).
func (rd *Reader) readMembers(typ *Type, fieldStrings []string) error {
	first, err := rd.r.u8()
	if err != nil {
		return err
	}
	if first == 0xC3 {
		first, err = rd.r.u8()
		if err != nil {
			return err
		}
		if first == 0 {
			v, err := rd.r.packed()
			if err != nil {
				return err
			}
			first = uint8(v)
		}
	}
	memberCount := first & 0x3F

	for i := uint8(0); i < memberCount; i++ {
		fieldIdx, err := rd.r.packed()
		if err != nil {
			return err
		}
		flags, err := rd.r.packed()
		if err != nil {
			return err
		}
		byteOffset, err := rd.r.packed()
		if err != nil {
			return err
		}
		typeIdx, err := rd.r.packed()
		if err != nil {
			return err
		}
		typ.Members = append(typ.Members, Member{
			Name:       fieldStrings[fieldIdx],
			Flags:      uint32(flags),
			ByteOffset: uint32(byteOffset),
			Type:       rd.types[typeIdx],
		})
	}
	return nil
}

func (rd *Reader) readHashes() error {
	count, err := rd.r.packed()
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		typeIdx, err := rd.r.packed()
		if err != nil {
			return err
		}
		hash, err := rd.r.u32le()
		if err != nil {
			return err
		}
		typ := rd.types[typeIdx]
		typ.Hash = hash
		typ.HasHash = true
	}
	return nil
}
