// Package pp is a minimal preprocessor driving the lexer core: it owns the
// include and macro expansion stacks, records object-like macro definitions,
// and skips inactive conditional regions. Function-like macros and #if
// expression evaluation are not implemented; unknown directives are
// diagnosed and discarded.
package pp

import (
	"path/filepath"

	"github.com/standardbeagle/clex/internal/config"
	"github.com/standardbeagle/clex/internal/diag"
	"github.com/standardbeagle/clex/internal/fileman"
	"github.com/standardbeagle/clex/internal/ident"
	"github.com/standardbeagle/clex/internal/lexer"
	"github.com/standardbeagle/clex/internal/source"
	"github.com/standardbeagle/clex/internal/token"
)

// stackEntry is one suspended token source on the include stack: either a
// lexer (an open #include) or a macro expander.
type stackEntry struct {
	lexer    *lexer.Lexer
	expander *lexer.MacroExpander
}

// Preprocessor implements lexer.Preprocessor over real files.
type Preprocessor struct {
	files  *fileman.FileManager
	srcs   *source.Manager
	idents *ident.Table
	diags  *diag.Engine
	opts   config.LangOptions

	// includeDirs is the search path for <...> includes, also consulted
	// for "..." includes after the including file's directory.
	includeDirs []string

	curLexer    *lexer.Lexer
	curExpander *lexer.MacroExpander
	stack       []stackEntry

	// activeMacros prevents self-referential object macros from
	// expanding forever; a macro does not re-expand inside itself.
	activeMacros map[*lexer.MacroInfo]bool

	// expansionDisabled is set while reading directive bodies so macro
	// names there stay plain identifiers.
	expansionDisabled bool

	// skipping is true inside an inactive conditional branch.
	skipping bool
}

// New returns a preprocessor over the given managers and feature flags.
func New(files *fileman.FileManager, srcs *source.Manager, idents *ident.Table, diags *diag.Engine, opts config.LangOptions, includeDirs []string) *Preprocessor {
	return &Preprocessor{
		files:        files,
		srcs:         srcs,
		idents:       idents,
		diags:        diags,
		opts:         opts,
		includeDirs:  includeDirs,
		activeMacros: make(map[*lexer.MacroInfo]bool),
	}
}

// EnterMainSourceFile starts lexing the given file id, which must have been
// created on the source manager.
func (p *Preprocessor) EnterMainSourceFile(fid source.FileID) {
	p.curLexer = lexer.New(p.srcs.Buffer(fid), fid, p)
	p.curExpander = nil
}

// enterSourceFile pushes the current token source and starts lexing fid.
func (p *Preprocessor) enterSourceFile(fid source.FileID) {
	p.stack = append(p.stack, stackEntry{lexer: p.curLexer, expander: p.curExpander})
	p.curLexer = lexer.New(p.srcs.Buffer(fid), fid, p)
	p.curExpander = nil
}

// enterMacro pushes the current token source and replays the macro.
func (p *Preprocessor) enterMacro(mi *lexer.MacroInfo, site *lexer.Token) {
	p.stack = append(p.stack, stackEntry{lexer: p.curLexer, expander: p.curExpander})
	p.curExpander = lexer.NewMacroExpander(mi, p, site)
	p.curLexer = nil
	p.activeMacros[mi] = true
}

// Lex produces the next token from the top of the lex stack.
func (p *Preprocessor) Lex(tok *lexer.Token) {
	if p.curExpander != nil {
		p.curExpander.Lex(tok)
		return
	}
	p.curLexer.Lex(tok)
}

// HandleIdentifier maps keywords and starts macro expansion.
func (p *Preprocessor) HandleIdentifier(tok *lexer.Token) {
	ii := tok.Ident

	if mi, ok := ii.Macro.(*lexer.MacroInfo); ok && mi != nil {
		if !p.expansionDisabled && !p.skipping && !p.activeMacros[mi] {
			p.enterMacro(mi, tok)
			p.Lex(tok)
			return
		}
	}

	if ii.TokenID != 0 {
		tok.Kind = ii.TokenID
	}
}

// HandleEndOfFile pops the include stack, or produces the eof token when the
// main file is done.
func (p *Preprocessor) HandleEndOfFile(tok *lexer.Token) {
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		p.curLexer = top.lexer
		p.curExpander = top.expander
		p.Lex(tok)
		return
	}

	end := uint32(len(p.curLexer.Buffer()) - 1)
	tok.Kind = token.EOF
	tok.File = p.curLexer.FileID()
	tok.Start = end
	tok.End = end
	tok.Ident = nil
}

// HandleEndOfMacro pops the macro expansion stack.
func (p *Preprocessor) HandleEndOfMacro(tok *lexer.Token) {
	delete(p.activeMacros, p.curExpander.Macro())

	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.curLexer = top.lexer
	p.curExpander = top.expander
	p.Lex(tok)
}

// IsCurrentLexer reports whether l is the top of the lex stack.
func (p *Preprocessor) IsCurrentLexer(l *lexer.Lexer) bool {
	return p.curExpander == nil && p.curLexer == l
}

// IsSkipping reports whether lexing is inside an inactive conditional
// branch.
func (p *Preprocessor) IsSkipping() bool { return p.skipping }

// IdentifierInfo interns the spelling.
func (p *Preprocessor) IdentifierInfo(name []byte) *ident.Info {
	return p.idents.Get(name)
}

// Diag forwards to the diagnostic engine.
func (p *Preprocessor) Diag(loc source.Location, id diag.ID, extra string) {
	p.diags.Report(loc, id, extra)
}

// LangOptions returns the language feature flags.
func (p *Preprocessor) LangOptions() config.LangOptions { return p.opts }

//
// Directive handling.
//

// HandleDirective dispatches on the directive name after a # at the start of
// a line.
func (p *Preprocessor) HandleDirective(hash *lexer.Token) {
	p.curLexer.SetInDirective(true)

	p.expansionDisabled = true
	defer func() { p.expansionDisabled = false }()

	var tok lexer.Token
	p.curLexer.Lex(&tok)

	// A # alone on its line is the null directive.
	if tok.Is(token.EOM) {
		return
	}

	if !tok.Is(token.Identifier) {
		p.Diag(tok.Location(), diag.ErrInvalidDirective, p.curLexer.Spelling(tok))
		p.discardUntilEndOfDirective(&tok)
		return
	}

	switch tok.Ident.Name() {
	case "include":
		p.handleIncludeDirective(hash.Location())
	case "define":
		p.handleDefineDirective()
	case "undef":
		p.handleUndefDirective()
	case "ifdef":
		p.handleIfdefDirective(hash.Location(), false)
	case "ifndef":
		p.handleIfdefDirective(hash.Location(), true)
	case "else":
		p.handleElseDirective(&tok)
	case "endif":
		p.handleEndifDirective(&tok)
	case "error":
		p.Diag(tok.Location(), diag.ErrDirectiveError, p.curLexer.ReadToEndOfLine())
	case "warning":
		p.Diag(tok.Location(), diag.WarnDirectiveWarning, p.curLexer.ReadToEndOfLine())
	default:
		p.Diag(tok.Location(), diag.ErrInvalidDirective, tok.Ident.Name())
		p.discardUntilEndOfDirective(&tok)
	}
}

// discardUntilEndOfDirective reads and drops tokens through the eom.
func (p *Preprocessor) discardUntilEndOfDirective(tok *lexer.Token) {
	for !tok.Is(token.EOM) {
		p.curLexer.Lex(tok)
	}
}

// handleIncludeDirective lexes the filename, resolves it, and pushes a lexer
// for the included buffer with the include location recorded.
func (p *Preprocessor) handleIncludeDirective(hashLoc source.Location) {
	var fnTok lexer.Token
	p.curLexer.LexIncludeFilename(&fnTok)
	if fnTok.Is(token.EOM) {
		// Diagnosed by the lexer already.
		return
	}

	spelling := p.curLexer.Spelling(fnTok)
	if len(spelling) < 2 {
		p.Diag(fnTok.Location(), diag.ErrExpectedFilename, "")
		return
	}
	angled := spelling[0] == '<'
	name := spelling[1 : len(spelling)-1]
	if name == "" {
		p.Diag(fnTok.Location(), diag.ErrExpectedFilename, "")
		return
	}

	entry := p.lookupInclude(name, angled)
	if entry == nil {
		p.Diag(fnTok.Location(), diag.ErrFileNotFound, name)
		return
	}

	fid := p.srcs.CreateFileID(entry, hashLoc)
	if fid == 0 {
		p.Diag(fnTok.Location(), diag.ErrFileNotFound, name)
		return
	}
	p.enterSourceFile(fid)
}

// lookupInclude resolves an include name against the including file's
// directory (for the quoted form) and the include search path.
func (p *Preprocessor) lookupInclude(name string, angled bool) *fileman.FileEntry {
	if !angled {
		if cur := p.srcs.FileEntry(p.curLexer.FileID()); cur != nil && cur.Dir() != nil {
			if fe := p.files.GetFile(filepath.Join(cur.Dir().Name(), name)); fe != nil {
				return fe
			}
		}
	}
	for _, dir := range p.includeDirs {
		if fe := p.files.GetFile(filepath.Join(dir, name)); fe != nil {
			return fe
		}
	}
	// Fall back on the name as given, relative to the working directory.
	return p.files.GetFile(name)
}

// lexMacroName reads the identifier naming a macro in #define or #undef. It
// returns nil after diagnosing (and discarding the directive) if the name is
// missing or not an identifier.
func (p *Preprocessor) lexMacroName(tok *lexer.Token) *ident.Info {
	p.curLexer.Lex(tok)
	if tok.Is(token.EOM) {
		p.Diag(tok.Location(), diag.ErrMacroNameMissing, "")
		return nil
	}
	if !tok.Is(token.Identifier) {
		p.Diag(tok.Location(), diag.ErrMacroNameNotIdentifier, "")
		p.discardUntilEndOfDirective(tok)
		return nil
	}
	return tok.Ident
}

// handleDefineDirective records an object-like macro: the rest of the
// directive line becomes the replacement token list.
func (p *Preprocessor) handleDefineDirective() {
	var tok lexer.Token
	ii := p.lexMacroName(&tok)
	if ii == nil {
		return
	}

	mi := lexer.NewMacroInfo(ii)
	for {
		p.curLexer.Lex(&tok)
		if tok.Is(token.EOM) {
			break
		}
		mi.AddToken(tok)
	}
	ii.Macro = mi
}

// handleUndefDirective removes a macro binding; undefining an unknown name
// is not an error.
func (p *Preprocessor) handleUndefDirective() {
	var tok lexer.Token
	ii := p.lexMacroName(&tok)
	if ii == nil {
		return
	}
	ii.Macro = nil
	p.discardUntilEndOfDirective(&tok)
}

// handleIfdefDirective evaluates definedness and either records an active
// region or skips to the matching #else/#endif.
func (p *Preprocessor) handleIfdefDirective(ifLoc source.Location, negate bool) {
	var tok lexer.Token
	ii := p.lexMacroName(&tok)
	if ii == nil {
		// Malformed condition; treat the region as taken.
		p.curLexer.PushConditionalLevel(lexer.PPConditionalInfo{IfLoc: ifLoc, FoundNonSkip: true})
		return
	}
	p.discardUntilEndOfDirective(&tok)

	taken := ii.HasMacro() != negate

	p.curLexer.PushConditionalLevel(lexer.PPConditionalInfo{IfLoc: ifLoc, FoundNonSkip: taken})
	if !taken {
		p.skipExcludedConditionalBlock()
	}
}

// handleElseDirective is reached while lexing an active branch: the rest of
// the region up to #endif is inactive.
func (p *Preprocessor) handleElseDirective(tok *lexer.Token) {
	elseLoc := tok.Location()
	ci, ok := p.curLexer.PeekConditionalLevel()
	if !ok {
		p.Diag(elseLoc, diag.ErrInvalidDirective, "else")
		p.discardUntilEndOfDirective(tok)
		return
	}
	p.discardUntilEndOfDirective(tok)

	if ci.FoundElse {
		p.Diag(elseLoc, diag.ErrInvalidDirective, "else")
		return
	}
	ci.FoundElse = true
	p.curLexer.SetConditionalLevel(ci)
	p.skipExcludedConditionalBlock()
}

// handleEndifDirective closes the innermost region.
func (p *Preprocessor) handleEndifDirective(tok *lexer.Token) {
	if _, ok := p.curLexer.PopConditionalLevel(); !ok {
		p.Diag(tok.Location(), diag.ErrInvalidDirective, "endif")
	}
	p.discardUntilEndOfDirective(tok)
}

// skipExcludedConditionalBlock consumes tokens until the directive that ends
// the innermost inactive region. While skipping, the lexer does not dispatch
// directives or expand macros; the hash tokens come through raw and nesting
// is tracked here.
func (p *Preprocessor) skipExcludedConditionalBlock() {
	p.skipping = true
	defer func() { p.skipping = false }()

	depth := 0
	startLexer := p.curLexer
	var tok lexer.Token
	for {
		p.curLexer.Lex(&tok)
		if tok.Is(token.EOF) {
			// Unterminated conditionals were diagnosed by the lexer.
			return
		}
		if p.curLexer != startLexer {
			// The buffer ended mid-region and the include stack
			// popped; the open region was already diagnosed.
			return
		}
		if !tok.Is(token.Hash) || !tok.IsAtStartOfLine() {
			continue
		}

		p.curLexer.SetInDirective(true)
		var name lexer.Token
		p.curLexer.Lex(&name)
		if name.Is(token.EOM) {
			continue
		}
		directive := ""
		if name.Is(token.Identifier) {
			directive = name.Ident.Name()
		}

		switch directive {
		case "if", "ifdef", "ifndef":
			depth++
		case "endif":
			if depth == 0 {
				p.curLexer.PopConditionalLevel()
				p.discardUntilEndOfDirective(&name)
				return
			}
			depth--
		case "else":
			if depth == 0 {
				ci, ok := p.curLexer.PeekConditionalLevel()
				if ok && !ci.FoundElse && !ci.FoundNonSkip {
					// The else branch is the active one; resume
					// normal lexing there.
					ci.FoundElse = true
					ci.FoundNonSkip = true
					p.curLexer.SetConditionalLevel(ci)
					p.discardUntilEndOfDirective(&name)
					return
				}
			}
		}
		p.discardUntilEndOfDirective(&name)
	}
}
