package tag

// writeIndexSection emits INDX { ITEM, PTCH } for every item accumulated
// while writing DATA (spec.md section 4.G). ITEM's first record is
// always the reserved null entry; PTCH lists, per item element type, the
// ascending de-duplicated DATA offsets a loader must relocate.
func (w *Writer) writeIndexSection() error {
	return withSectionWriter(w.out, "INDX", false, func(*sectionWriter) error {
		if err := withSectionWriter(w.out, "ITEM", true, func(*sectionWriter) error {
			if err := w.out.writeZeros(12); err != nil {
				return err
			}
			for _, item := range w.items[1:] {
				word := uint32(w.typeIdx[item.Type])
				if item.IsPtr {
					word |= itemFlagIsPtr
				}
				if err := w.out.u32le(word); err != nil {
					return err
				}
				if err := w.out.u32le(item.Offset); err != nil {
					return err
				}
				if err := w.out.u32le(item.Count); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}

		return withSectionWriter(w.out, "PTCH", true, func(*sectionWriter) error {
			for _, t := range w.types {
				offsets := sortedPatchOffsets(w.patches[t])
				if len(offsets) == 0 {
					continue
				}
				if err := w.out.writePacked(uint64(w.typeIdx[t])); err != nil {
					return err
				}
				if err := w.out.writePacked(uint64(len(offsets))); err != nil {
					return err
				}
				for _, off := range offsets {
					if err := w.out.u32le(uint32(off)); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
}
