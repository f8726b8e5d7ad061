// Package tagging keeps track of which blocks are resident in a cache.
package tagging

// A Decoder splits an address into the set that the block maps to and the
// tag that identifies the block within that set.
type Decoder struct {
	OffsetBits uint
	SetBits    uint
}

// NewDecoder creates a decoder for a cache with 2^setBits sets and
// 2^offsetBits bytes per block.
func NewDecoder(offsetBits, setBits uint) Decoder {
	return Decoder{
		OffsetBits: offsetBits,
		SetBits:    setBits,
	}
}

// BlockAddress drops the block offset from addr.
func (d Decoder) BlockAddress(addr uint64) uint64 {
	return addr >> d.OffsetBits
}

// Decode returns the set index and the tag of addr.
func (d Decoder) Decode(addr uint64) (setID, tag uint64) {
	blockAddr := d.BlockAddress(addr)

	setID = blockAddr & d.setMask()
	tag = blockAddr >> d.SetBits

	return setID, tag
}

// Compose is the inverse of Decode, up to the dropped offset bits.
func (d Decoder) Compose(setID, tag uint64) uint64 {
	return tag<<d.SetBits | setID&d.setMask()
}

func (d Decoder) setMask() uint64 {
	return (uint64(1) << d.SetBits) - 1
}
