package lexer

import (
	"github.com/standardbeagle/clex/internal/ident"
	"github.com/standardbeagle/clex/internal/source"
	"github.com/standardbeagle/clex/internal/token"
)

// Flags carries the per-token bits set at emission time and never re-derived
// downstream.
type Flags uint8

const (
	// StartOfLine marks the first token after a newline.
	StartOfLine Flags = 1 << iota
	// LeadingSpace marks a token preceded by whitespace on its line.
	LeadingSpace
	// NeedsCleaning is set when the raw byte range contains a trigraph,
	// escaped newline or other spelling noise, so the canonical spelling
	// differs from the raw bytes.
	NeedsCleaning
)

// Token is one preprocessing token. Start and End delimit the raw spelling
// as half-open byte offsets into the buffer owned by the file id, so tokens
// stay valid without holding the lexer alive. Tokens are transient: they do
// not survive the next Lex call unless copied (a macro replacement list is
// such a copy).
type Token struct {
	Kind  token.Kind
	File  source.FileID
	Start uint32
	End   uint32
	Flags Flags

	// Ident is the interned identifier record, set for identifier tokens
	// after table lookup.
	Ident *ident.Info
}

// Length returns the raw spelling length in bytes.
func (t *Token) Length() uint32 { return t.End - t.Start }

// Location returns the source location of the token start. For chunked
// buffers the offset promotion in NewLocation selects the right chunk id.
func (t *Token) Location() source.Location {
	return source.NewLocation(t.File, t.Start)
}

// Is reports whether the token has the given kind.
func (t *Token) Is(k token.Kind) bool { return t.Kind == k }

// SetFlag sets the given flag bits.
func (t *Token) SetFlag(f Flags) { t.Flags |= f }

// ClearFlag clears the given flag bits.
func (t *Token) ClearFlag(f Flags) { t.Flags &^= f }

// SetFlagValue sets or clears the flag according to on.
func (t *Token) SetFlagValue(f Flags, on bool) {
	if on {
		t.SetFlag(f)
	} else {
		t.ClearFlag(f)
	}
}

// IsAtStartOfLine reports whether this is the first token on its line.
func (t *Token) IsAtStartOfLine() bool { return t.Flags&StartOfLine != 0 }

// HasLeadingSpace reports whether whitespace preceded the token.
func (t *Token) HasLeadingSpace() bool { return t.Flags&LeadingSpace != 0 }

// NeedsClean reports whether the canonical spelling differs from the raw
// byte range.
func (t *Token) NeedsClean() bool { return t.Flags&NeedsCleaning != 0 }
