// Package snapshot persists built document-term matrices to .cdtm files: a
// fixed binary header, a JSON cell block, a JSON dictionary of document and
// term identifiers, and a CRC-guarded footer. Files are written atomically
// via a temp-file rename.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/eborbath/corpustat/internal/dtm"
)

const (
	MagicBytes    uint32 = 0x4344544D // "CDTM"
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 16
)

// Header is the fixed-size block at the start of every snapshot file.
type Header struct {
	Magic       uint32
	Version     uint32
	DocCount    uint32
	TermCount   uint32
	CreatedAt   int64
	CellsOffset int64
	CellsSize   int64
	DictOffset  int64
	DictSize    int64
}

// cell is one stored matrix entry, referenced by dense indices into the
// dictionary.
type cell struct {
	Doc   int `json:"d"`
	Term  int `json:"t"`
	Count int `json:"c"`
}

// dictionary maps dense indices back to document and term identifiers, in
// the matrix's internal index order.
type dictionary struct {
	Docs  []string `json:"docs"`
	Terms []string `json:"terms"`
}

// Write serialises the matrix into dir under the given corpus name and
// returns the snapshot file name.
func Write(dir, corpusID string, m *dtm.DTM) (name string, err error) {
	name = fmt.Sprintf("%s_%d.cdtm", corpusID, time.Now().UnixNano())
	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp snapshot file: %w", err)
	}
	// On any failure the partial temp file must not survive; the success
	// path closes f explicitly before the rename.
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	headerBytes := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(headerBytes[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(headerBytes[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(headerBytes[8:12], uint32(m.NumDocs()))
	binary.LittleEndian.PutUint32(headerBytes[12:16], uint32(m.NumTerms()))
	binary.LittleEndian.PutUint64(headerBytes[16:24], uint64(time.Now().Unix()))
	if _, err := f.Write(headerBytes); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	dict := dictionary{Docs: m.Docs(), Terms: m.Terms()}
	docIdx := make(map[string]int, len(dict.Docs))
	for i, d := range dict.Docs {
		docIdx[d] = i
	}
	termIdx := make(map[string]int, len(dict.Terms))
	for i, t := range dict.Terms {
		termIdx[t] = i
	}
	cells := make([]cell, 0, m.Total())
	m.EachCell(func(docID, term string, count int) {
		cells = append(cells, cell{Doc: docIdx[docID], Term: termIdx[term], Count: count})
	})

	cellsData, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("marshaling cells: %w", err)
	}
	cellsOffset := int64(HeaderSize)
	if _, err := f.Write(cellsData); err != nil {
		return "", fmt.Errorf("writing cells: %w", err)
	}

	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	dictOffset := cellsOffset + int64(len(cellsData))
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}

	checksum := crc32.ChecksumIEEE(cellsData)
	checksum = crc32.Update(checksum, crc32.IEEETable, dictData)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], checksum)
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}

	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(cellsOffset))
	binary.LittleEndian.PutUint64(headerBytes[32:40], uint64(len(cellsData)))
	binary.LittleEndian.PutUint64(headerBytes[40:48], uint64(dictOffset))
	binary.LittleEndian.PutUint64(headerBytes[48:56], uint64(len(dictData)))
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming snapshot file: %w", err)
	}
	return name, nil
}
