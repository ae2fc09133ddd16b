package lexer

import (
	"github.com/standardbeagle/clex/internal/config"
	"github.com/standardbeagle/clex/internal/diag"
	"github.com/standardbeagle/clex/internal/ident"
	"github.com/standardbeagle/clex/internal/source"
)

// Preprocessor is the callback surface the lexer drives. The preprocessor
// owns the include and macro expansion stacks; the lexer calls back into it
// at directive boundaries, identifier tokens, and end of buffer. Reentrancy
// is deep synchronous recursion bounded by include and macro nesting.
type Preprocessor interface {
	// Lex produces the next token from the top of the lex stack.
	Lex(tok *Token)

	// HandleIdentifier inspects an identifier token; it may map it to a
	// keyword kind, start a macro expansion, or leave it as-is.
	HandleIdentifier(tok *Token)

	// HandleDirective acts on a # token at the start of a line.
	HandleDirective(hash *Token)

	// HandleEndOfFile pops the include stack or produces the eof token.
	HandleEndOfFile(tok *Token)

	// HandleEndOfMacro pops the macro expansion stack.
	HandleEndOfMacro(tok *Token)

	// IsCurrentLexer reports whether l is still the top of the lex stack.
	IsCurrentLexer(l *Lexer) bool

	// IsSkipping reports whether lexing is inside an inactive
	// conditional branch.
	IsSkipping() bool

	// IdentifierInfo interns the spelling and returns its record.
	IdentifierInfo(name []byte) *ident.Info

	// Diag forwards a diagnostic.
	Diag(loc source.Location, id diag.ID, extra string)

	// LangOptions returns the language feature flags.
	LangOptions() config.LangOptions
}

// PPConditionalInfo records one open conditional (#if/#ifdef) region of the
// buffer the lexer is scanning. The stack lives on the lexer so that open
// regions can be diagnosed when the buffer ends.
type PPConditionalInfo struct {
	// IfLoc is the location of the directive that opened the region.
	IfLoc source.Location

	// WasSkipping is true if the region is inside another skipped region.
	WasSkipping bool

	// FoundNonSkip is true once an active branch of the region was taken.
	FoundNonSkip bool

	// FoundElse is true once #else has been seen; another #else is an
	// error.
	FoundElse bool
}

// PushConditionalLevel opens a conditional region.
func (l *Lexer) PushConditionalLevel(ci PPConditionalInfo) {
	l.conditionalStack = append(l.conditionalStack, ci)
}

// PopConditionalLevel closes the innermost region. It reports false if no
// region is open.
func (l *Lexer) PopConditionalLevel() (PPConditionalInfo, bool) {
	if len(l.conditionalStack) == 0 {
		return PPConditionalInfo{}, false
	}
	ci := l.conditionalStack[len(l.conditionalStack)-1]
	l.conditionalStack = l.conditionalStack[:len(l.conditionalStack)-1]
	return ci, true
}

// PeekConditionalLevel returns the innermost open region without closing it.
func (l *Lexer) PeekConditionalLevel() (PPConditionalInfo, bool) {
	if len(l.conditionalStack) == 0 {
		return PPConditionalInfo{}, false
	}
	return l.conditionalStack[len(l.conditionalStack)-1], true
}

// SetConditionalLevel replaces the innermost open region.
func (l *Lexer) SetConditionalLevel(ci PPConditionalInfo) {
	if len(l.conditionalStack) > 0 {
		l.conditionalStack[len(l.conditionalStack)-1] = ci
	}
}

// NumConditionalLevels returns the number of open regions.
func (l *Lexer) NumConditionalLevels() int { return len(l.conditionalStack) }
