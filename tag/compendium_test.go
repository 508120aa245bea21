package tag

import (
	"bytes"
	"testing"
)

// buildCompendiumBytes writes a minimal TCM0 stream carrying a single
// TCID entry and an empty inline type section, reusing Writer's own
// type-section encoder so the bytes are guaranteed to match what
// readInlineTypeSection expects.
func buildCompendiumBytes(t *testing.T, id [8]byte) []byte {
	t.Helper()
	w := &byteWriter{}
	err := withSectionWriter(w, "TCM0", false, func(*sectionWriter) error {
		if err := withSectionWriter(w, "TCID", true, func(*sectionWriter) error {
			_, err := w.Write(id[:])
			return err
		}); err != nil {
			return err
		}
		wr := &Writer{out: w, typeIdx: map[*Type]int{}}
		return wr.writeTypeSection()
	})
	if err != nil {
		t.Fatalf("buildCompendiumBytes: %v", err)
	}
	return w.bytes()
}

// buildTag0WithCompendiumRef writes a minimal TAG0 stream whose TYPE
// section is a TCRF cross-reference to id, with an empty DATA and INDX
// (spec.md section 8.2 scenario 6).
func buildTag0WithCompendiumRef(t *testing.T, id [8]byte) []byte {
	t.Helper()
	w := &byteWriter{}
	err := withSectionWriter(w, "TAG0", false, func(*sectionWriter) error {
		if err := withSectionWriter(w, "SDKV", true, func(*sectionWriter) error {
			_, err := w.Write([]byte("20160100"))
			return err
		}); err != nil {
			return err
		}
		if err := withSectionWriter(w, "DATA", true, func(*sectionWriter) error {
			return w.pad(16)
		}); err != nil {
			return err
		}
		if err := withSectionWriter(w, "TCRF", false, func(*sectionWriter) error {
			_, err := w.Write(id[:])
			return err
		}); err != nil {
			return err
		}
		return withSectionWriter(w, "INDX", false, func(*sectionWriter) error {
			if err := withSectionWriter(w, "ITEM", true, func(*sectionWriter) error {
				return w.writeZeros(12)
			}); err != nil {
				return err
			}
			return withSectionWriter(w, "PTCH", true, func(*sectionWriter) error { return nil })
		})
	})
	if err != nil {
		t.Fatalf("buildTag0WithCompendiumRef: %v", err)
	}
	return w.bytes()
}

func TestCompendiumResolvesTCRF(t *testing.T) {
	id := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	comp, err := OpenCompendium(bytes.NewReader(buildCompendiumBytes(t, id)))
	if err != nil {
		t.Fatalf("OpenCompendium: %v", err)
	}
	if len(comp.IDs()) != 1 || comp.IDs()[0] != id {
		t.Fatalf("IDs() = %v, want [%v]", comp.IDs(), id)
	}

	data := buildTag0WithCompendiumRef(t, id)
	rd, err := NewReader(bytes.NewReader(data), comp)
	if err != nil {
		t.Fatalf("NewReader with matching compendium: %v", err)
	}
	if len(rd.Types()) != len(comp.Types()) {
		t.Errorf("resolved %d types, want the compendium's %d", len(rd.Types()), len(comp.Types()))
	}
}

func TestCompendiumMissingReturnsError(t *testing.T) {
	id := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	data := buildTag0WithCompendiumRef(t, id)
	_, err := NewReader(bytes.NewReader(data), nil)
	if err == nil {
		t.Fatal("expected a MissingCompendiumError when no compendium is supplied")
	}
	if _, ok := err.(*MissingCompendiumError); !ok {
		t.Errorf("err = %T, want *MissingCompendiumError", err)
	}
}

func TestCompendiumUnknownIdReturnsError(t *testing.T) {
	have := [8]byte{1, 1, 1, 1, 1, 1, 1, 1}
	want := [8]byte{2, 2, 2, 2, 2, 2, 2, 2}
	comp, err := OpenCompendium(bytes.NewReader(buildCompendiumBytes(t, have)))
	if err != nil {
		t.Fatalf("OpenCompendium: %v", err)
	}

	data := buildTag0WithCompendiumRef(t, want)
	_, err = NewReader(bytes.NewReader(data), comp)
	if err == nil {
		t.Fatal("expected an UnknownCompendiumIdError for a TCRF id absent from the compendium")
	}
	if _, ok := err.(*UnknownCompendiumIdError); !ok {
		t.Errorf("err = %T, want *UnknownCompendiumIdError", err)
	}
}
