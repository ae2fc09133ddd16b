package lexer

import (
	"github.com/standardbeagle/clex/internal/ident"
	"github.com/standardbeagle/clex/internal/source"
)

// MacroInfo holds the replacement token list recorded for one #define. The
// tokens are copies of the transient lexer tokens and stay valid for the
// compilation. The lexer never looks inside; only the MacroExpander indexes
// the list.
type MacroInfo struct {
	name   *ident.Info
	tokens []Token
}

// NewMacroInfo returns an empty macro body for the given identifier.
func NewMacroInfo(name *ident.Info) *MacroInfo {
	return &MacroInfo{name: name}
}

// Name returns the identifier the macro was defined as.
func (mi *MacroInfo) Name() *ident.Info { return mi.name }

// AddToken appends a replacement token.
func (mi *MacroInfo) AddToken(tok Token) {
	mi.tokens = append(mi.tokens, tok)
}

// NumTokens returns the replacement list length.
func (mi *MacroInfo) NumTokens() int { return len(mi.tokens) }

// Token returns the i'th replacement token.
func (mi *MacroInfo) Token(i int) Token { return mi.tokens[i] }

// MacroExpander is a lexer-shaped object that replays a macro's recorded
// replacement list instead of lexing from a character buffer.
type MacroExpander struct {
	macro *MacroInfo
	pp    Preprocessor

	// macroID is the file id of the chunk holding the expansion site.
	macroID source.FileID

	// curToken indexes the next replacement token to return.
	curToken int

	// Lexical properties of the identifier the macro expanded from; the
	// first replayed token inherits them so whitespace fidelity is kept
	// at the expansion point.
	atStartOfLine   bool
	hasLeadingSpace bool
}

// NewMacroExpander returns an expander replaying macro at the site of the
// given identifier token.
func NewMacroExpander(macro *MacroInfo, pp Preprocessor, site *Token) *MacroExpander {
	return &MacroExpander{
		macro:           macro,
		pp:              pp,
		macroID:         site.Location().File(),
		curToken:        0,
		atStartOfLine:   site.IsAtStartOfLine(),
		hasLeadingSpace: site.HasLeadingSpace(),
	}
}

// Macro returns the macro being expanded.
func (me *MacroExpander) Macro() *MacroInfo { return me.macro }

// Lex returns the next token from the macro stream.
func (me *MacroExpander) Lex(tok *Token) {
	// Lexing off the end of the macro pops it off the expansion stack.
	if me.curToken == me.macro.NumTokens() {
		me.pp.HandleEndOfMacro(tok)
		return
	}

	*tok = me.macro.Token(me.curToken)
	me.curToken++

	// The first token of the expansion takes the lexical properties of
	// the expansion site.
	if me.curToken == 1 {
		tok.SetFlagValue(StartOfLine, me.atStartOfLine)
		tok.SetFlagValue(LeadingSpace, me.hasLeadingSpace)
	}

	// Recursive expansion re-enters through the identifier path.
	if tok.Ident != nil {
		me.pp.HandleIdentifier(tok)
	}
}
