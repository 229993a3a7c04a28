package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/eborbath/corpustat/internal/dtm"
	"github.com/eborbath/corpustat/pkg/errors"
)

// Read loads a snapshot file, verifies its checksum, and reconstructs the
// matrix, preserving document and term index order including zero-occupancy
// document rows.
func Read(path string) (*dtm.DTM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, errors.Newf(errors.ErrSnapshotCorrupt, 500, "file too short: %d bytes", len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != MagicBytes {
		return nil, errors.Newf(errors.ErrSnapshotCorrupt, 500, "bad magic bytes %x", magic)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return nil, errors.Newf(errors.ErrSnapshotCorrupt, 500, "unsupported format version %d", version)
	}
	header := Header{
		Magic:       magic,
		Version:     version,
		DocCount:    binary.LittleEndian.Uint32(data[8:12]),
		TermCount:   binary.LittleEndian.Uint32(data[12:16]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(data[16:24])),
		CellsOffset: int64(binary.LittleEndian.Uint64(data[24:32])),
		CellsSize:   int64(binary.LittleEndian.Uint64(data[32:40])),
		DictOffset:  int64(binary.LittleEndian.Uint64(data[40:48])),
		DictSize:    int64(binary.LittleEndian.Uint64(data[48:56])),
	}
	if header.CellsOffset+header.CellsSize > int64(len(data)) ||
		header.DictOffset+header.DictSize > int64(len(data)) {
		return nil, errors.New(errors.ErrSnapshotCorrupt, 500, "section offsets exceed file size")
	}

	cellsData := data[header.CellsOffset : header.CellsOffset+header.CellsSize]
	dictData := data[header.DictOffset : header.DictOffset+header.DictSize]

	checksum := crc32.ChecksumIEEE(cellsData)
	checksum = crc32.Update(checksum, crc32.IEEETable, dictData)
	stored := binary.LittleEndian.Uint32(data[len(data)-FooterSize:])
	if checksum != stored {
		return nil, errors.Newf(errors.ErrSnapshotCorrupt, 500, "checksum mismatch: have %x, want %x", checksum, stored)
	}

	var dict dictionary
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	var cells []cell
	if err := json.Unmarshal(cellsData, &cells); err != nil {
		return nil, fmt.Errorf("parsing cells: %w", err)
	}

	b := dtm.NewBuilder()
	for _, docID := range dict.Docs {
		b.AddDoc(docID)
	}
	for _, c := range cells {
		if c.Doc < 0 || c.Doc >= len(dict.Docs) || c.Term < 0 || c.Term >= len(dict.Terms) {
			return nil, errors.Newf(errors.ErrSnapshotCorrupt, 500, "cell references out-of-range index (doc=%d term=%d)", c.Doc, c.Term)
		}
		b.AddCount(dict.Docs[c.Doc], dict.Terms[c.Term], c.Count)
	}
	m, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("rebuilding matrix: %w", err)
	}
	return m, nil
}
