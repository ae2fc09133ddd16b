// Package ident interns identifier spellings and keeps the per-identifier
// bookkeeping the front-end hangs off them: keyword overrides, the current
// macro binding, and an opaque front-end payload. Every identifier token the
// lexer produces goes through this table, so the lookup path is kept tight.
package ident

import (
	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/clex/internal/token"
)

// Info is the record kept for each interned identifier. Its address is
// stable for the lifetime of the Table, so consumers may hold the pointer.
// The lexer only reads it; the fields are set by consumers.
type Info struct {
	name string

	// TokenID is non-zero if this spelling lexes as a source-language
	// token (a keyword) rather than a plain identifier.
	TokenID token.Kind

	// IsExtension marks the token kind as a language extension; only
	// meaningful when TokenID is set.
	IsExtension bool

	// Macro is the current macro binding, set while the identifier is
	// #define'd and cleared on #undef. It is opaque here; the
	// preprocessor stores its *lexer.MacroInfo.
	Macro any

	// FEInfo is arbitrary metadata managed by the language front-end.
	FEInfo any
}

// Name returns the interned spelling.
func (i *Info) Name() string { return i.name }

// NameLen returns the spelling length in bytes.
func (i *Info) NameLen() int { return len(i.name) }

// HasMacro reports whether the identifier is currently #define'd.
func (i *Info) HasMacro() bool { return i.Macro != nil }

// Stats describes how well the hashing is doing.
type Stats struct {
	NumIdentifiers  int
	NumBuckets      int
	EmptyBuckets    int
	AvgProbesPerHit float64
}

// Table is an open-addressing hash set of identifier records keyed by
// spelling. Lookups take the raw byte range from the lexed buffer so the hot
// path does not allocate for identifiers already interned.
type Table struct {
	buckets []*Info
	count   int

	hits   uint64
	probes uint64
}

const initialBuckets = 1 << 12

// NewTable returns an empty identifier table.
func NewTable() *Table {
	return &Table{buckets: make([]*Info, initialBuckets)}
}

// Get returns the identifier record for the spelling, interning it on first
// sight. Equal byte sequences always return the same record.
func (t *Table) Get(name []byte) *Info {
	h := xxhash.Sum64(name)
	mask := uint64(len(t.buckets) - 1)
	idx := h & mask

	probes := uint64(1)
	for {
		info := t.buckets[idx]
		if info == nil {
			break
		}
		if bytesEqualString(name, info.name) {
			t.hits++
			t.probes += probes
			return info
		}
		idx = (idx + 1) & mask
		probes++
	}

	info := &Info{name: string(name)}
	t.buckets[idx] = info
	t.count++
	if t.count*4 >= len(t.buckets)*3 {
		t.grow()
	}
	return info
}

// GetString is Get for a string spelling.
func (t *Table) GetString(name string) *Info {
	h := xxhash.Sum64String(name)
	mask := uint64(len(t.buckets) - 1)
	idx := h & mask

	probes := uint64(1)
	for {
		info := t.buckets[idx]
		if info == nil {
			break
		}
		if info.name == name {
			t.hits++
			t.probes += probes
			return info
		}
		idx = (idx + 1) & mask
		probes++
	}

	info := &Info{name: name}
	t.buckets[idx] = info
	t.count++
	if t.count*4 >= len(t.buckets)*3 {
		t.grow()
	}
	return info
}

// grow doubles the bucket array and rehashes the existing records. Records
// move buckets; their addresses do not change.
func (t *Table) grow() {
	old := t.buckets
	t.buckets = make([]*Info, len(old)*2)
	mask := uint64(len(t.buckets) - 1)
	for _, info := range old {
		if info == nil {
			continue
		}
		idx := xxhash.Sum64String(info.name) & mask
		for t.buckets[idx] != nil {
			idx = (idx + 1) & mask
		}
		t.buckets[idx] = info
	}
}

// Len returns the number of interned identifiers.
func (t *Table) Len() int { return t.count }

// Stats returns hashing statistics.
func (t *Table) Stats() Stats {
	empty := 0
	for _, info := range t.buckets {
		if info == nil {
			empty++
		}
	}
	avg := 0.0
	if t.hits > 0 {
		avg = float64(t.probes) / float64(t.hits)
	}
	return Stats{
		NumIdentifiers:  t.count,
		NumBuckets:      len(t.buckets),
		EmptyBuckets:    empty,
		AvgProbesPerHit: avg,
	}
}

func bytesEqualString(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		if b[i] != s[i] {
			return false
		}
	}
	return true
}
