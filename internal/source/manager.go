package source

import (
	"os"
	"sort"

	"github.com/standardbeagle/clex/internal/fileman"
)

// FileInfo is kept once per loaded buffer. The buffer always carries one
// extra NUL byte past the content; the lexer relies on that sentinel to
// terminate its inner loops without bounds checks. The buffer is never
// mutated after ingestion.
type FileInfo struct {
	name string

	// buffer holds the file content plus the trailing NUL sentinel.
	buffer []byte

	// lineOffsets holds the byte offset of every physical line start,
	// with one terminal entry equal to the scanned length. Built lazily
	// on the first line-number query and never rebuilt.
	lineOffsets []uint32
}

// Name returns an identifier for the buffer, typically the path it was read
// from.
func (fi *FileInfo) Name() string { return fi.name }

// Buffer returns the content including the sentinel NUL at the end.
func (fi *FileInfo) Buffer() []byte { return fi.buffer }

// Size returns the content length, excluding the sentinel.
func (fi *FileInfo) Size() int { return len(fi.buffer) - 1 }

// fileIDInfo records, per allocated file id, the include location that
// brought the file in, the chunk number within the buffer, and the owning
// FileInfo. All chunks of one buffer share a FileInfo.
type fileIDInfo struct {
	includeLoc Location
	chunkNo    uint32
	info       *FileInfo
	entry      *fileman.FileEntry // nil for memory buffers
}

// Stats is a snapshot of the manager's bookkeeping.
type Stats struct {
	FilesMapped      int
	MemBuffers       int
	FileIDsAllocated int
	BytesMapped      int
	LineTablesBuilt  int
}

// Manager owns the buffers of a translation unit and the file ids that name
// them. It is single-threaded by contract; independent translation units use
// independent managers.
type Manager struct {
	fileInfos map[*fileman.FileEntry]*FileInfo
	memInfos  []*FileInfo

	// ids[fid-1] describes file id fid; id 0 is invalid.
	ids []fileIDInfo
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{fileInfos: make(map[*fileman.FileEntry]*FileInfo)}
}

// CreateFileID loads (or reuses) the buffer for the given file entry and
// allocates file ids for it, recording the include location that caused the
// file to enter the translation unit. It returns the first id of the buffer,
// or 0 if the file could not be read.
func (m *Manager) CreateFileID(entry *fileman.FileEntry, includeLoc Location) FileID {
	info := m.fileInfos[entry]
	if info == nil {
		data, err := os.ReadFile(entry.Name())
		if err != nil {
			return 0
		}
		info = newFileInfo(entry.Name(), data)
		m.fileInfos[entry] = info
	}
	return m.allocateIDs(info, entry, includeLoc)
}

// CreateMemBufferFileID ingests a caller-supplied buffer (stdin, synthesized
// input). The content is copied; no uniquing is performed and the call always
// succeeds.
func (m *Manager) CreateMemBufferFileID(name string, data []byte) FileID {
	info := newFileInfo(name, data)
	m.memInfos = append(m.memInfos, info)
	return m.allocateIDs(info, nil, Location(0))
}

func newFileInfo(name string, data []byte) *FileInfo {
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	return &FileInfo{name: name, buffer: buf}
}

// allocateIDs issues one file id per chunk of the buffer. A buffer of size S
// occupies max(1, ceil((S+1)/ChunkSize)) consecutive ids sharing one
// FileInfo.
func (m *Manager) allocateIDs(info *FileInfo, entry *fileman.FileEntry, includeLoc Location) FileID {
	size := info.Size()
	if size+1 < ChunkSize {
		m.ids = append(m.ids, fileIDInfo{includeLoc: includeLoc, chunkNo: 0, info: info, entry: entry})
		return FileID(len(m.ids))
	}

	first := FileID(len(m.ids) + 1)
	numChunks := uint32((size + ChunkSize) / ChunkSize) // ceil((size+1)/ChunkSize)
	for chunk := uint32(0); chunk < numChunks; chunk++ {
		m.ids = append(m.ids, fileIDInfo{includeLoc: includeLoc, chunkNo: chunk, info: info, entry: entry})
	}
	return first
}

func (m *Manager) idInfo(fid FileID) *fileIDInfo {
	if fid == 0 || int(fid) > len(m.ids) {
		return nil
	}
	return &m.ids[fid-1]
}

// FileInfoForID returns the FileInfo backing the given file id, or nil.
func (m *Manager) FileInfoForID(fid FileID) *FileInfo {
	if info := m.idInfo(fid); info != nil {
		return info.info
	}
	return nil
}

// Buffer returns the buffer (including the sentinel NUL) for the file id.
func (m *Manager) Buffer(fid FileID) []byte {
	if info := m.idInfo(fid); info != nil {
		return info.info.buffer
	}
	return nil
}

// IncludeLoc returns the location of the include that brought in the file.
// It is invalid for the root file and for memory buffers.
func (m *Manager) IncludeLoc(fid FileID) Location {
	if info := m.idInfo(fid); info != nil {
		return info.includeLoc
	}
	return Location(0)
}

// FileEntry returns the FileEntry for the file id, or nil for memory buffers.
func (m *Manager) FileEntry(fid FileID) *fileman.FileEntry {
	if info := m.idInfo(fid); info != nil {
		return info.entry
	}
	return nil
}

// FilePos returns the offset from the start of the file that the location
// represents, factoring in the chunk number of the id it carries.
func (m *Manager) FilePos(loc Location) uint64 {
	info := m.idInfo(loc.File())
	if info == nil {
		return 0
	}
	return uint64(loc.RawOffset()) + uint64(info.chunkNo)<<OffsetBits
}

// ColumnNumber returns the 1-based column for the location: the distance to
// the previous newline or the buffer start. It is significantly cheaper than
// LineNumber. Returns 0 for an invalid location.
func (m *Manager) ColumnNumber(loc Location) uint32 {
	info := m.idInfo(loc.File())
	if info == nil {
		return 0
	}
	buf := info.info.buffer
	pos := m.FilePos(loc)

	lineStart := pos
	for lineStart > 0 && buf[lineStart-1] != '\n' && buf[lineStart-1] != '\r' {
		lineStart--
	}
	return uint32(pos-lineStart) + 1
}

// LineNumber returns the 1-based physical line number for the location. The
// first query builds the line-offset table for the buffer; use only when a
// diagnostic is about to be rendered. Returns 0 for an invalid location.
func (m *Manager) LineNumber(loc Location) uint32 {
	info := m.idInfo(loc.File())
	if info == nil {
		return 0
	}
	fi := info.info
	if fi.lineOffsets == nil {
		fi.lineOffsets = computeLineOffsets(fi.buffer)
	}

	pos := uint32(m.FilePos(loc))
	n := sort.Search(len(fi.lineOffsets), func(i int) bool {
		return fi.lineOffsets[i] >= pos+1
	})
	return uint32(n)
}

// computeLineOffsets finds the file offsets of all physical source lines.
// This looks only at raw bytes: trigraphs and escaped newlines do not affect
// physical lines. \n, \r, \r\n and \n\r each terminate one line. Embedded
// NULs before the sentinel are skipped so the table still describes buffers
// the lexer will diagnose later.
func computeLineOffsets(buf []byte) []uint32 {
	offsets := []uint32{0}
	end := len(buf) - 1 // sentinel index

	i := 0
	for {
		for i < end && buf[i] != '\n' && buf[i] != '\r' && buf[i] != 0 {
			i++
		}
		if i >= end {
			break
		}
		if buf[i] == 0 {
			// Embedded NUL; not a line terminator.
			i++
			continue
		}
		c := buf[i]
		i++
		// A \r\n or \n\r pair is one terminator.
		if i < end && (buf[i] == '\n' || buf[i] == '\r') && buf[i] != c {
			i++
		}
		offsets = append(offsets, uint32(i))
	}
	offsets = append(offsets, uint32(end))
	return offsets
}

// Stats returns a snapshot of the manager's bookkeeping.
func (m *Manager) Stats() Stats {
	st := Stats{
		FilesMapped:      len(m.fileInfos),
		MemBuffers:       len(m.memInfos),
		FileIDsAllocated: len(m.ids),
	}
	for _, fi := range m.fileInfos {
		st.BytesMapped += fi.Size()
		if fi.lineOffsets != nil {
			st.LineTablesBuilt++
		}
	}
	for _, fi := range m.memInfos {
		st.BytesMapped += fi.Size()
		if fi.lineOffsets != nil {
			st.LineTablesBuilt++
		}
	}
	return st
}
