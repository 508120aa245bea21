package tag

import "io"

// Compendium wraps a Reader opened against a TCM0 stream, the sidecar
// schema source a TAG0 file's TYPE section can cross-reference via TCRF
// (spec.md section 4.D, section 6.6 scenario 6).
type Compendium struct {
	rd *Reader
}

// OpenCompendium reads a TCM0 stream and returns the Compendium a sibling
// TAG0 file's NewReader call can resolve a TCRF against.
func OpenCompendium(rs io.ReadSeeker) (*Compendium, error) {
	rd, err := openCompendiumReader(rs)
	if err != nil {
		return nil, err
	}
	return &Compendium{rd: rd}, nil
}

// IDs returns the compendium's TCID list, in file order.
func (c *Compendium) IDs() [][8]byte { return c.rd.compendiumIDs }

// Types returns the compendium's resolved type schema.
func (c *Compendium) Types() []*Type { return c.rd.types }
