package tag

// readIndexSection parses INDX { ITEM, PTCH } (spec.md section 4.E). PTCH
// is a relocation list the reader does not need: indices already sit
// in place in DATA, so its subsection is skipped wholesale.
func (rd *Reader) readIndexSection() error {
	return withSection(rd.r, func(*sectionReader) error {
		if err := withSection(rd.r, func(s *sectionReader) error {
			for !s.end() {
				word, err := rd.r.u32le()
				if err != nil {
					return err
				}
				offset, err := rd.r.u32le()
				if err != nil {
					return err
				}
				count, err := rd.r.u32le()
				if err != nil {
					return err
				}
				rd.items = append(rd.items, &Item{
					Type:   rd.types[word&itemTypeIndexMask],
					IsPtr:  word&itemFlagIsPtr != 0,
					Offset: uint32(rd.dataOffset) + offset,
					Count:  count,
				})
			}
			return nil
		}, "ITEM"); err != nil {
			return err
		}
		return withSection(rd.r, func(*sectionReader) error { return nil }, "PTCH")
	}, "INDX")
}
