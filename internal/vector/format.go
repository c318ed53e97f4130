// Package vector implements the XFVI on-disk vector index: a compact,
// memory-mappable file of (doc_type, doc_id, half-precision vector)
// triples supporting exhaustive cosine-similarity scan.
package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/xfeed/xfeed/internal/model"
)

const (
	magic         = "XFVI"
	formatVersion = uint16(1)
	headerLength  = 32
)

var docTypeCodes = map[model.DocType]uint8{
	model.DocTypeTweet: 0,
	model.DocTypeLike:  1,
	model.DocTypeDM:    2,
	model.DocTypeGrok:  3,
}

var codeDocTypes = map[uint8]model.DocType{
	0: model.DocTypeTweet,
	1: model.DocTypeLike,
	2: model.DocTypeDM,
	3: model.DocTypeGrok,
}

// Entry is one vector record, as supplied to Build or returned by
// Index.IterRecords.
type Entry struct {
	DocType model.DocType
	DocID   string
	Vector  []float32
}

// Build serializes entries into the XFVI binary format: a 32-byte
// header, an offsets table, then one record per entry. Entries are sorted into the canonical
// (doc_type asc, doc_id lex asc) order before encoding, per the format's
// determinism contract: indexing the same archive twice must yield a
// byte-identical file.
func Build(entries []Entry, dimension int) ([]byte, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		ci, cj := docTypeCodes[sorted[i].DocType], docTypeCodes[sorted[j].DocType]
		if ci != cj {
			return ci < cj
		}
		return sorted[i].DocID < sorted[j].DocID
	})

	recordCount := uint64(len(sorted))
	offsetsStart := uint64(headerLength)
	offsetsLen := recordCount * 8

	recordBufs := make([][]byte, len(sorted))
	for i, e := range sorted {
		code, ok := docTypeCodes[e.DocType]
		if !ok {
			return nil, fmt.Errorf("vector: unknown doc_type %q", e.DocType)
		}
		if len(e.Vector) != dimension {
			return nil, &Error{Kind: DimensionMismatch, Reason: fmt.Sprintf("entry %s/%s has %d components, want %d", e.DocType, e.DocID, len(e.Vector), dimension)}
		}
		idBytes := []byte(e.DocID)
		buf := make([]byte, 2+2+len(idBytes)+2*dimension)
		buf[0] = code
		buf[1] = 0
		binary.LittleEndian.PutUint16(buf[2:4], uint16(len(idBytes)))
		copy(buf[4:4+len(idBytes)], idBytes)
		off := 4 + len(idBytes)
		for _, c := range e.Vector {
			binary.LittleEndian.PutUint16(buf[off:off+2], float32ToHalf(c))
			off += 2
		}
		recordBufs[i] = buf
	}

	var out bytes.Buffer
	out.Grow(headerLength + int(offsetsLen))

	out.WriteString(magic)
	writeU16(&out, formatVersion)
	out.WriteByte(0) // doc-type-encoding
	out.WriteByte(0) // reserved
	writeU32(&out, uint32(dimension))
	writeU64(&out, recordCount)
	writeU64(&out, offsetsStart) // offsets table immediately follows the header
	writeU32(&out, 0)            // reserved

	dataStart := offsetsStart + offsetsLen
	offset := dataStart
	for _, buf := range recordBufs {
		writeU64(&out, offset)
		offset += uint64(len(buf))
	}
	for _, buf := range recordBufs {
		out.Write(buf)
	}
	return out.Bytes(), nil
}

func writeU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func writeU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func writeU64(b *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.Write(tmp[:])
}

// header is the parsed, validated 32-byte file header.
type header struct {
	version      uint16
	dimension    uint32
	recordCount  uint64
	offsetsStart uint64
}

// parseHeader validates everything that can be checked from the header
// alone. offsets/record validation happens once the full buffer is
// available (validateOffsets).
func parseHeader(path string, data []byte) (*header, error) {
	if len(data) < headerLength {
		return nil, &Error{Kind: Corrupt, Path: path, Reason: "file shorter than header"}
	}
	if string(data[0:4]) != magic {
		return nil, &Error{Kind: Corrupt, Path: path, Reason: "bad magic"}
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != formatVersion {
		return nil, &Error{Kind: VersionUnsupported, Path: path, Reason: fmt.Sprintf("version %d", version)}
	}
	dimension := binary.LittleEndian.Uint32(data[8:12])
	if dimension == 0 {
		return nil, &Error{Kind: Corrupt, Path: path, Reason: "dimension is zero"}
	}
	recordCount := binary.LittleEndian.Uint64(data[12:20])
	offsetsStart := binary.LittleEndian.Uint64(data[20:28])
	if offsetsStart < headerLength {
		return nil, &Error{Kind: Corrupt, Path: path, Reason: "offsets_start before end of header"}
	}
	return &header{version: version, dimension: dimension, recordCount: recordCount, offsetsStart: offsetsStart}, nil
}

// validateAndDecode walks the offsets table and every record, checking
// every invariant spec.md §4.5 names, and returns the decoded entries in
// file order. It never panics: any structural problem is
// reported as a *Error with Kind Corrupt.
func validateAndDecode(path string, data []byte, h *header) ([]Entry, error) {
	offsetsEnd := h.offsetsStart + h.recordCount*8
	if offsetsEnd > uint64(len(data)) || offsetsEnd < h.offsetsStart {
		return nil, &Error{Kind: Corrupt, Path: path, Reason: "offsets table exceeds file bounds"}
	}
	offsets := make([]uint64, h.recordCount)
	for i := uint64(0); i < h.recordCount; i++ {
		off := h.offsetsStart + i*8
		offsets[i] = binary.LittleEndian.Uint64(data[off : off+8])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			return nil, &Error{Kind: Corrupt, Path: path, Reason: "offsets not strictly increasing"}
		}
	}
	for _, off := range offsets {
		if off < offsetsEnd || off >= uint64(len(data)) {
			return nil, &Error{Kind: Corrupt, Path: path, Reason: "offset points outside data section"}
		}
	}

	entries := make([]Entry, h.recordCount)
	for i, off := range offsets {
		var end uint64
		if i+1 < len(offsets) {
			end = offsets[i+1]
		} else {
			end = uint64(len(data))
		}
		rec := data[off:end]
		if len(rec) < 4 {
			return nil, &Error{Kind: Corrupt, Path: path, Reason: "record too short for fixed header"}
		}
		code := rec[0]
		dt, ok := codeDocTypes[code]
		if !ok {
			return nil, &Error{Kind: Corrupt, Path: path, Reason: fmt.Sprintf("unknown doc_type code %d", code)}
		}
		idLen := int(binary.LittleEndian.Uint16(rec[2:4]))
		wantLen := 4 + idLen + 2*int(h.dimension)
		if len(rec) < wantLen {
			return nil, &Error{Kind: Corrupt, Path: path, Reason: "record shorter than declared id/vector length"}
		}
		idBytes := rec[4 : 4+idLen]
		if !utf8.Valid(idBytes) {
			return nil, &Error{Kind: Corrupt, Path: path, Reason: "doc_id is not valid UTF-8"}
		}
		vec := make([]float32, h.dimension)
		base := 4 + idLen
		for k := 0; k < int(h.dimension); k++ {
			hbits := binary.LittleEndian.Uint16(rec[base+2*k : base+2*k+2])
			vec[k] = halfToFloat32(hbits)
		}
		entries[i] = Entry{DocType: dt, DocID: string(idBytes), Vector: vec}
	}
	return entries, nil
}
