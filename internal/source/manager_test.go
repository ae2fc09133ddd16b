package source

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/clex/internal/fileman"
)

func memBuffer(t *testing.T, m *Manager, content string) FileID {
	t.Helper()
	fid := m.CreateMemBufferFileID("<test>", []byte(content))
	require.NotZero(t, fid)
	return fid
}

func TestMemBufferSentinel(t *testing.T) {
	m := NewManager()
	fid := memBuffer(t, m, "hello\n")

	buf := m.Buffer(fid)
	require.Len(t, buf, 7)
	assert.Equal(t, byte(0), buf[len(buf)-1], "every buffer ends in a sentinel")
	assert.Equal(t, 6, m.FileInfoForID(fid).Size())
}

func TestCreateFileIDFromEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.c")
	require.NoError(t, os.WriteFile(path, []byte("int x;\n"), 0o644))

	fm := fileman.New()
	entry := fm.GetFile(path)
	require.NotNil(t, entry)

	m := NewManager()
	incLoc := NewLocation(9, 99)
	fid := m.CreateFileID(entry, incLoc)
	require.NotZero(t, fid)

	assert.Equal(t, []byte("int x;\n\x00"), m.Buffer(fid))
	assert.Equal(t, incLoc, m.IncludeLoc(fid))
	assert.Same(t, entry, m.FileEntry(fid))

	// The same entry reuses the loaded buffer but gets fresh ids.
	fid2 := m.CreateFileID(entry, Location(0))
	assert.NotEqual(t, fid, fid2)
	assert.Same(t, &m.Buffer(fid)[0], &m.Buffer(fid2)[0], "one buffer shared between id ranges")
}

func TestCreateFileIDMissingFile(t *testing.T) {
	fm := fileman.New()
	entry := fm.GetFile(filepath.Join(t.TempDir(), "missing.c"))
	assert.Nil(t, entry)

	// An entry whose file is gone by the time it is read yields id 0.
	path := filepath.Join(t.TempDir(), "gone.c")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
	entry = fm.GetFile(path)
	require.NotNil(t, entry)
	require.NoError(t, os.Remove(path))
	assert.Zero(t, NewManager().CreateFileID(entry, Location(0)))
}

func TestFileIDChunking(t *testing.T) {
	tests := []struct {
		size    int
		wantIDs int
	}{
		{0, 1},
		{100, 1},
		{ChunkSize - 2, 1}, // size+1 just under the chunk limit
		{ChunkSize - 1, 1}, // size+1 == ChunkSize: the sentinel still fits the first id
		{ChunkSize, 2},
		{2*ChunkSize + 5, 3},
	}
	for _, tt := range tests {
		m := NewManager()
		fid := m.CreateMemBufferFileID("<big>", bytes.Repeat([]byte{'x'}, tt.size))
		require.Equal(t, FileID(1), fid)
		assert.Equal(t, tt.wantIDs, m.Stats().FileIDsAllocated, "size %d", tt.size)
	}
}

func TestFileIDRangesDisjoint(t *testing.T) {
	m := NewManager()
	fid1 := m.CreateMemBufferFileID("<a>", bytes.Repeat([]byte{'a'}, ChunkSize+10))
	fid2 := memBuffer(t, m, "small")

	assert.Equal(t, FileID(1), fid1)
	assert.Equal(t, FileID(3), fid2, "the large buffer occupied ids 1 and 2")
	assert.NotSame(t, &m.Buffer(fid1)[0], &m.Buffer(fid2)[0])
}

func TestFilePosAcrossChunks(t *testing.T) {
	m := NewManager()
	fid := m.CreateMemBufferFileID("<big>", bytes.Repeat([]byte{'x'}, ChunkSize+100))

	// A location in the second chunk factors in the chunk number.
	loc := NewLocation(fid, ChunkSize+50)
	assert.Equal(t, FileID(2), loc.File())
	assert.Equal(t, uint64(ChunkSize+50), m.FilePos(loc))

	assert.Equal(t, uint64(7), m.FilePos(NewLocation(fid, 7)))
}

func TestFilePosOrderMatchesSourceOrder(t *testing.T) {
	m := NewManager()
	fid := memBuffer(t, m, "abc def\nghi\n")

	var prev uint64
	for off := uint32(0); off <= 12; off++ {
		pos := m.FilePos(NewLocation(fid, off))
		if off > 0 {
			assert.Greater(t, pos, prev)
		}
		assert.LessOrEqual(t, pos, uint64(12))
		prev = pos
	}
}

func TestColumnNumber(t *testing.T) {
	m := NewManager()
	fid := memBuffer(t, m, "ab cd\nxyz\n")

	assert.Equal(t, uint32(1), m.ColumnNumber(NewLocation(fid, 0)))
	assert.Equal(t, uint32(4), m.ColumnNumber(NewLocation(fid, 3)))
	assert.Equal(t, uint32(1), m.ColumnNumber(NewLocation(fid, 6)), "first column after a newline")
	assert.Equal(t, uint32(3), m.ColumnNumber(NewLocation(fid, 8)))

	assert.Equal(t, uint32(0), m.ColumnNumber(Location(0)), "invalid location")
}

func TestLineNumber(t *testing.T) {
	m := NewManager()
	fid := memBuffer(t, m, "one\ntwo\nthree\n")

	assert.Equal(t, uint32(1), m.LineNumber(NewLocation(fid, 0)))
	assert.Equal(t, uint32(1), m.LineNumber(NewLocation(fid, 3)), "the newline belongs to its line")
	assert.Equal(t, uint32(2), m.LineNumber(NewLocation(fid, 4)))
	assert.Equal(t, uint32(3), m.LineNumber(NewLocation(fid, 8)))

	assert.Equal(t, uint32(0), m.LineNumber(Location(0)), "invalid location")
	assert.Equal(t, 1, m.Stats().LineTablesBuilt, "the table is built once")
}

func TestLineNumberTerminators(t *testing.T) {
	// \n, \r, \r\n and \n\r all terminate a single line.
	m := NewManager()
	fid := memBuffer(t, m, "a\nb\rc\r\nd\n\re\n")

	assert.Equal(t, uint32(1), m.LineNumber(NewLocation(fid, 0)))  // a
	assert.Equal(t, uint32(2), m.LineNumber(NewLocation(fid, 2)))  // b
	assert.Equal(t, uint32(3), m.LineNumber(NewLocation(fid, 4)))  // c
	assert.Equal(t, uint32(4), m.LineNumber(NewLocation(fid, 7)))  // d
	assert.Equal(t, uint32(5), m.LineNumber(NewLocation(fid, 10))) // e
}

func TestLineNumberWithEmbeddedNul(t *testing.T) {
	m := NewManager()
	fid := m.CreateMemBufferFileID("<nul>", []byte("a\x00b\nc\n"))

	assert.Equal(t, uint32(1), m.LineNumber(NewLocation(fid, 2)), "a NUL is not a line terminator")
	assert.Equal(t, uint32(2), m.LineNumber(NewLocation(fid, 4)))
}

func TestLineColumnMonotonicity(t *testing.T) {
	m := NewManager()
	content := "aa bb\ncc dd ee\n\nf\n"
	fid := m.CreateMemBufferFileID("<mono>", []byte(content))

	var prevLine, prevCol uint32
	for off := 0; off < len(content); off++ {
		loc := NewLocation(fid, uint32(off))
		line, col := m.LineNumber(loc), m.ColumnNumber(loc)
		if off > 0 {
			ok := line > prevLine || (line == prevLine && col >= prevCol)
			assert.True(t, ok, "offset %d: (%d,%d) after (%d,%d)", off, line, col, prevLine, prevCol)
		}
		prevLine, prevCol = line, col
	}
}

func TestManagerStats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.c")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	fm := fileman.New()
	m := NewManager()
	require.NotZero(t, m.CreateFileID(fm.GetFile(path), Location(0)))
	memBuffer(t, m, "mem")

	st := m.Stats()
	assert.Equal(t, 1, st.FilesMapped)
	assert.Equal(t, 1, st.MemBuffers)
	assert.Equal(t, 2, st.FileIDsAllocated)
	assert.Equal(t, 5, st.BytesMapped)
}
