// Package crc computes table-driven 16-bit checksums, one-shot or as a
// running digest over a byte stream.
package crc

import "fmt"

// CCITT is the checksum used for lane digests.
var CCITT = NewCRC("CCITT", 0xFFFF, 0x1021, 0x1D0F)

type CRC struct {
	Name    string
	Init    uint16
	Poly    uint16
	Residue uint16

	tbl Table
}

func NewCRC(name string, init, poly, residue uint16) (crc CRC) {
	crc.Name = name
	crc.Init = init
	crc.Poly = poly
	crc.Residue = residue
	crc.tbl = NewTable(crc.Poly)

	return
}

func (crc CRC) String() string {
	return fmt.Sprintf("{Name:%s Init:0x%04X Poly:0x%04X}", crc.Name, crc.Init, crc.Poly)
}

// Checksum of data starting from the initial value.
func (crc CRC) Checksum(data []byte) uint16 {
	return update(crc.Init, data, &crc.tbl)
}

// Update continues sum over data. Update(Update(Init, a), b) equals
// Checksum(a ++ b).
func (crc CRC) Update(sum uint16, data []byte) uint16 {
	return update(sum, data, &crc.tbl)
}

// NewDigest returns a running checksum starting from the initial value.
func (crc CRC) NewDigest() *Digest {
	return &Digest{crc: crc, sum: crc.Init}
}

type Table [256]uint16

// NewTable computes the MSB-first lookup table for poly.
func NewTable(poly uint16) (table Table) {
	for tIdx := range table {
		crc := uint16(tIdx) << 8
		for bIdx := 0; bIdx < 8; bIdx++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc = crc << 1
			}
		}
		table[tIdx] = crc
	}
	return table
}

func update(crc uint16, data []byte, table *Table) uint16 {
	for _, v := range data {
		crc = crc<<8 ^ table[crc>>8^uint16(v)]
	}
	return crc
}

// A Digest accumulates a checksum and byte count over everything written to
// it. Write never fails.
type Digest struct {
	crc CRC
	sum uint16
	n   uint64
}

func (d *Digest) Write(p []byte) (int, error) {
	d.sum = d.crc.Update(d.sum, p)
	d.n += uint64(len(p))
	return len(p), nil
}

// Sum16 is the checksum of the bytes written so far.
func (d *Digest) Sum16() uint16 {
	return d.sum
}

// Len is the number of bytes written so far.
func (d *Digest) Len() uint64 {
	return d.n
}

func (d *Digest) Reset() {
	d.sum = d.crc.Init
	d.n = 0
}

func (d *Digest) String() string {
	return fmt.Sprintf("%s:%04X/%d", d.crc.Name, d.sum, d.n)
}
