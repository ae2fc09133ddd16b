// Package fileman implements file system lookup and caching for the
// preprocessor: directory and file existence checks, negative-result caching,
// and uniquing of paths by (device, inode) identity so that a file reachable
// through two names (a symlink, say) is treated as a single file.
package fileman

import (
	"strings"

	"golang.org/x/sys/unix"
)

// DirectoryEntry is cached information about one directory on disk. Two paths
// resolving to the same inode share one entry.
type DirectoryEntry struct {
	name string
}

// Name returns the path this directory was first found under.
func (d *DirectoryEntry) Name() string { return d.name }

// FileEntry is cached information about one file on disk. Entries persist for
// the lifetime of the FileManager and outlive any buffer loaded from them.
type FileEntry struct {
	name    string
	size    int64
	modTime int64 // seconds since the epoch
	dir     *DirectoryEntry
	uid     uint32
}

// Name returns the path this file was first found under.
func (f *FileEntry) Name() string { return f.name }

// Size returns the file size in bytes at lookup time.
func (f *FileEntry) Size() int64 { return f.size }

// ModTime returns the modification time observed at lookup time.
func (f *FileEntry) ModTime() int64 { return f.modTime }

// Dir returns the directory the file lives in.
func (f *FileEntry) Dir() *DirectoryEntry { return f.dir }

// UID returns the small dense id assigned to this file in allocation order.
func (f *FileEntry) UID() uint32 { return f.uid }

// fsID is the filesystem identity used for uniquing.
type fsID struct {
	dev uint64
	ino uint64
}

// Stats is a snapshot of the manager's lookup counters.
type Stats struct {
	UniqueFiles     int
	UniqueDirs      int
	DirLookups      uint64
	DirCacheMisses  uint64
	FileLookups     uint64
	FileCacheMisses uint64
}

// FileManager caches directory and file lookups. Negative results are cached
// as nil map values so repeated probes for missing headers cost one map hit.
type FileManager struct {
	dirEntries  map[string]*DirectoryEntry
	fileEntries map[string]*FileEntry

	uniqueDirs  map[fsID]*DirectoryEntry
	uniqueFiles map[fsID]*FileEntry

	nextFileUID uint32

	numDirLookups     uint64
	numDirCacheMisses uint64

	numFileLookups     uint64
	numFileCacheMisses uint64
}

// New returns an empty FileManager.
func New() *FileManager {
	return &FileManager{
		dirEntries:  make(map[string]*DirectoryEntry),
		fileEntries: make(map[string]*FileEntry),
		uniqueDirs:  make(map[fsID]*DirectoryEntry),
		uniqueFiles: make(map[fsID]*FileEntry),
	}
}

// GetDirectory looks up, caches and verifies the specified directory. It
// returns nil if the directory does not exist or the path names a non-directory;
// the caller decides whether that is fatal.
func (fm *FileManager) GetDirectory(path string) *DirectoryEntry {
	fm.numDirLookups++
	if ent, ok := fm.dirEntries[path]; ok {
		return ent
	}
	fm.numDirCacheMisses++

	// Cache the result under the path, including negative lookups.
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil || st.Mode&unix.S_IFMT != unix.S_IFDIR {
		fm.dirEntries[path] = nil
		return nil
	}

	id := fsID{dev: uint64(st.Dev), ino: st.Ino}
	if ude := fm.uniqueDirs[id]; ude != nil {
		// Already have an entry with this inode; one dir is symlinked to
		// another, for example.
		fm.dirEntries[path] = ude
		return ude
	}

	de := &DirectoryEntry{name: path}
	fm.dirEntries[path] = de
	fm.uniqueDirs[id] = de
	return de
}

// GetFile looks up, caches and verifies the specified file. It returns nil if
// the file does not exist; a stat failure or a directory where a file was
// expected is "not found", not an error.
func (fm *FileManager) GetFile(path string) *FileEntry {
	fm.numFileLookups++
	if ent, ok := fm.fileEntries[path]; ok {
		return ent
	}
	fm.numFileCacheMisses++

	// Figure out the directory the file is in before statting the file
	// itself: a missing parent means the file cannot exist either.
	var dirName string
	slash := strings.LastIndexByte(path, '/')
	switch {
	case slash < 0:
		dirName = "."
	case slash == len(path)-1:
		// A path ending in / names a directory, not a file.
		fm.fileEntries[path] = nil
		return nil
	default:
		dirName = path[:slash]
	}

	dir := fm.GetDirectory(dirName)
	if dir == nil {
		fm.fileEntries[path] = nil
		return nil
	}

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil || st.Mode&unix.S_IFMT == unix.S_IFDIR {
		fm.fileEntries[path] = nil
		return nil
	}

	id := fsID{dev: uint64(st.Dev), ino: st.Ino}
	if ufe := fm.uniqueFiles[id]; ufe != nil {
		fm.fileEntries[path] = ufe
		return ufe
	}

	fe := &FileEntry{
		name:    path,
		size:    st.Size,
		modTime: st.Mtim.Sec,
		dir:     dir,
		uid:     fm.nextFileUID,
	}
	fm.nextFileUID++
	fm.fileEntries[path] = fe
	fm.uniqueFiles[id] = fe
	return fe
}

// Stats returns a snapshot of the lookup counters.
func (fm *FileManager) Stats() Stats {
	return Stats{
		UniqueFiles:     len(fm.uniqueFiles),
		UniqueDirs:      len(fm.uniqueDirs),
		DirLookups:      fm.numDirLookups,
		DirCacheMisses:  fm.numDirCacheMisses,
		FileLookups:     fm.numFileLookups,
		FileCacheMisses: fm.numFileCacheMisses,
	}
}
