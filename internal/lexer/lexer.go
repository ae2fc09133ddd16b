// Package lexer turns one source buffer into a stream of preprocessing
// tokens: raw byte-range tokens with trigraph, escaped-newline, digraph and
// comment handling. It is the performance-critical inner loop of the
// front-end, so the cursor is a plain offset into a NUL-terminated buffer and
// the hot paths avoid per-byte bounds checks by relying on the sentinel.
package lexer

import (
	"github.com/standardbeagle/clex/internal/config"
	"github.com/standardbeagle/clex/internal/diag"
	"github.com/standardbeagle/clex/internal/source"
	"github.com/standardbeagle/clex/internal/token"
)

// Lexer produces tokens from a single buffer. The preprocessor owns a stack
// of these, one per open #include.
type Lexer struct {
	buf []byte // buffer with the sentinel NUL as its last byte
	end int    // index of the sentinel
	ptr int    // next byte to read

	fileID source.FileID
	pp     Preprocessor

	// features is the lexer's own copy: BCPLComment latches on after the
	// first extension diagnostic for the translation unit.
	features config.LangOptions

	isAtStartOfLine              bool
	parsingPreprocessorDirective bool
	parsingFilename              bool

	conditionalStack []PPConditionalInfo
}

// New returns a lexer over buf, which must end with a NUL sentinel byte.
// fileID names the first chunk of the buffer.
func New(buf []byte, fileID source.FileID, pp Preprocessor) *Lexer {
	if len(buf) == 0 || buf[len(buf)-1] != 0 {
		panic("lexer: input buffer must have a null sentinel at the end")
	}
	return &Lexer{
		buf:             buf,
		end:             len(buf) - 1,
		fileID:          fileID,
		pp:              pp,
		features:        pp.LangOptions(),
		isAtStartOfLine: true,
	}
}

// FileID returns the file id of the first chunk of the buffer.
func (l *Lexer) FileID() source.FileID { return l.fileID }

// Buffer returns the buffer being lexed, including the sentinel.
func (l *Lexer) Buffer() []byte { return l.buf }

// Features returns the lexer's feature flags, with any latched extensions.
func (l *Lexer) Features() config.LangOptions { return l.features }

// InDirective reports whether the lexer is inside a preprocessor directive
// line.
func (l *Lexer) InDirective() bool { return l.parsingPreprocessorDirective }

// SetInDirective is used by the preprocessor when it starts consuming a
// directive line after the # token.
func (l *Lexer) SetInDirective(on bool) { l.parsingPreprocessorDirective = on }

// SourceLocation returns the location of the given buffer offset.
func (l *Lexer) SourceLocation(off int) source.Location {
	if off < 0 || off > l.end {
		panic("lexer: location out of range for this buffer")
	}
	return source.NewLocation(l.fileID, uint32(off))
}

// diagAt forwards a diagnostic for the given buffer offset.
func (l *Lexer) diagAt(off int, id diag.ID, extra string) {
	l.pp.Diag(l.SourceLocation(off), id, extra)
}

// Lex returns the next token from the buffer.
func (l *Lexer) Lex(tok *Token) {
	tok.Flags = 0
	tok.Ident = nil
	if l.isAtStartOfLine {
		tok.SetFlag(StartOfLine)
		l.isAtStartOfLine = false
	}
	l.lexTokenInternal(tok)
}

//
// Trigraph and escaped newline handling.
//

// trigraphCharForLetter maps the character after a ?? pair to the decoded
// punctuator, or 0 if the sequence is not a trigraph.
func trigraphCharForLetter(letter byte) byte {
	switch letter {
	case '=':
		return '#'
	case ')':
		return ']'
	case '(':
		return '['
	case '!':
		return '|'
	case '\'':
		return '^'
	case '>':
		return '}'
	case '/':
		return '\\'
	case '<':
		return '{'
	case '-':
		return '~'
	}
	return 0
}

// decodeTrigraphChar decodes the trigraph whose letter is at cp. When
// trigraphs are disabled the sequence is ignored and 0 is returned; warnings
// are emitted only when a token is being formed (tok non-nil).
func (l *Lexer) decodeTrigraphChar(cp int, tok *Token) byte {
	res := trigraphCharForLetter(l.buf[cp])
	if res == 0 {
		return 0
	}
	if !l.features.Trigraphs {
		if tok != nil {
			l.diagAt(cp-2, diag.WarnTrigraphIgnored, "")
		}
		return 0
	}
	if tok != nil {
		l.diagAt(cp-2, diag.WarnTrigraphConverted, string(res))
	}
	return res
}

// getCharAndSizeSlow decodes one logical character starting at cur, handling
// escaped newlines and trigraphs. It returns the character and the number of
// raw bytes it occupies. tok is nil when peeking; a non-nil tok accumulates
// the NeedsCleaning flag and enables warnings.
//
// When this method is updated, charAndSizeSlowNoWarn below should be updated
// to match.
func (l *Lexer) getCharAndSizeSlow(cur int, tok *Token) (byte, int) {
	if l.buf[cur] == '\\' {
		return l.slashSlow(cur+1, 1, tok)
	}

	if l.buf[cur] == '?' && l.buf[cur+1] == '?' {
		if c := l.decodeTrigraphChar(cur+2, tok); c != 0 {
			if tok != nil {
				tok.SetFlag(NeedsCleaning)
			}
			if c == '\\' {
				// The trigraph for backslash can still begin an
				// escaped newline.
				return l.slashSlow(cur+3, 3, tok)
			}
			return c, 3
		}
	}

	return l.buf[cur], 1
}

// slashSlow continues decoding after a logical backslash: size raw bytes are
// already accounted for and cur points at the byte after the backslash. An
// escaped newline (optionally with horizontal whitespace before the newline)
// is consumed as nothing and the character after it is decoded instead.
func (l *Lexer) slashSlow(cur, size int, tok *Token) (byte, int) {
	// Common case: backslash before a non-whitespace character.
	if !isWhitespace(l.buf[cur]) {
		return '\\', size
	}

	sizeTmp := 0
	for {
		sizeTmp++
		if c := l.buf[cur+sizeTmp-1]; c == '\n' || c == '\r' {
			if tok != nil {
				tok.SetFlag(NeedsCleaning)
				if sizeTmp != 1 {
					l.diagAt(cur, diag.WarnBackslashNewlineSpace, "")
				}
			}

			// A \r\n or \n\r pair counts as one newline.
			if c2 := l.buf[cur+sizeTmp]; (c2 == '\r' || c2 == '\n') && c2 != c {
				sizeTmp++
			}

			// Found backslash<whitespace><newline>: decode the
			// character after the splice.
			ch, rest := l.getCharAndSizeSlow(cur+sizeTmp, tok)
			return ch, size + sizeTmp + rest
		}
		if !isWhitespace(l.buf[cur+sizeTmp]) {
			// Not an escaped newline, just a backslash.
			return '\\', size
		}
	}
}

// getCharAndSize peeks one logical character at cur. Pass a nil tok to peek
// without accumulating flags; the returned size is consumed with consumeChar.
func (l *Lexer) getCharAndSize(cur int, tok *Token) (byte, int) {
	if c := l.buf[cur]; c != '?' && c != '\\' {
		return c, 1
	}
	return l.getCharAndSizeSlow(cur, tok)
}

// getAndAdvanceChar reads one logical character and returns the new cursor.
func (l *Lexer) getAndAdvanceChar(cur int, tok *Token) (byte, int) {
	if c := l.buf[cur]; c != '?' && c != '\\' {
		return c, cur + 1
	}
	c, size := l.getCharAndSizeSlow(cur, tok)
	return c, cur + size
}

// consumeChar advances past one logical character previously peeked with
// getCharAndSize, recording cleaning on tok for multi-byte spellings. This is
// the only way to move the cursor past a multi-byte logical character.
func (l *Lexer) consumeChar(cur, size int, tok *Token) int {
	if size == 1 {
		return cur + 1
	}
	// Re-decode in warn mode so the token picks up flags and diagnostics.
	_, size = l.getCharAndSizeSlow(cur, tok)
	return cur + size
}

//
// No-warn decoding, used to reconstruct spellings outside the lexer.
//

// charAndSizeSlowNoWarn mirrors getCharAndSizeSlow without a lexer: no
// diagnostics, no flag accumulation.
//
// When this function is updated, getCharAndSizeSlow above should be updated
// to match.
func charAndSizeSlowNoWarn(buf []byte, cur int, features config.LangOptions) (byte, int) {
	if buf[cur] == '\\' {
		return slashSlowNoWarn(buf, cur+1, 1, features)
	}

	if features.Trigraphs && buf[cur] == '?' && buf[cur+1] == '?' {
		if c := trigraphCharForLetter(buf[cur+2]); c != 0 {
			if c == '\\' {
				return slashSlowNoWarn(buf, cur+3, 3, features)
			}
			return c, 3
		}
	}

	return buf[cur], 1
}

func slashSlowNoWarn(buf []byte, cur, size int, features config.LangOptions) (byte, int) {
	if !isWhitespace(buf[cur]) {
		return '\\', size
	}

	sizeTmp := 0
	for {
		sizeTmp++
		if c := buf[cur+sizeTmp-1]; c == '\n' || c == '\r' {
			if c2 := buf[cur+sizeTmp]; (c2 == '\r' || c2 == '\n') && c2 != c {
				sizeTmp++
			}
			ch, rest := charAndSizeSlowNoWarn(buf, cur+sizeTmp, features)
			return ch, size + sizeTmp + rest
		}
		if !isWhitespace(buf[cur+sizeTmp]) {
			return '\\', size
		}
	}
}

// charAndSizeNoWarn decodes one logical character without emitting warnings.
func charAndSizeNoWarn(buf []byte, cur int, features config.LangOptions) (byte, int) {
	if c := buf[cur]; c != '?' && c != '\\' {
		return c, 1
	}
	return charAndSizeSlowNoWarn(buf, cur, features)
}

// Spelling returns the canonical spelling of the token: the characters the
// token uses after trigraph expansion and escaped-newline folding. buf is
// the buffer the token was lexed from.
func Spelling(tok Token, buf []byte, features config.LangOptions) string {
	if tok.Start > tok.End {
		panic("lexer: token character range is bogus")
	}

	// A token with nothing interesting in it spells as its raw bytes.
	if !tok.NeedsClean() {
		return string(buf[tok.Start:tok.End])
	}

	res := make([]byte, 0, tok.Length())
	for cur, end := int(tok.Start), int(tok.End); cur != end; {
		c, size := charAndSizeNoWarn(buf, cur, features)
		res = append(res, c)
		cur += size
	}
	if len(res) == int(tok.Length()) {
		panic("lexer: NeedsCleaning set on a token that did not need cleaning")
	}
	return string(res)
}

// Spelling returns the canonical spelling of a token from this lexer's
// buffer.
func (l *Lexer) Spelling(tok Token) string {
	return Spelling(tok, l.buf, l.features)
}

//
// Helper methods for lexing.
//

func (l *Lexer) lexIdentifier(tok *Token, cur int) {
	// Match [_A-Za-z0-9]*; the first character was already consumed.
	c := l.buf[cur]
	for isIdentifierBody(c) {
		cur++
		c = l.buf[cur]
	}

	// Fast path: no $, \ or ? in the identifier. \ could be an escaped
	// newline and ? a trigraph for one.
	if c != '\\' && c != '?' && (c != '$' || !l.features.DollarIdents) {
		l.finishIdentifier(tok, cur)
		return
	}

	// Slow path for identifiers containing escaped newlines, trigraphs or
	// dollars.
	c, size := l.getCharAndSize(cur, nil)
	for {
		if c == '$' {
			if !l.features.DollarIdents {
				l.finishIdentifier(tok, cur)
				return
			}
			l.diagAt(cur, diag.ExtDollarInIdentifier, "")
			cur = l.consumeChar(cur, size, tok)
			c, size = l.getCharAndSize(cur, nil)
			continue
		}
		if !isIdentifierBody(c) {
			l.finishIdentifier(tok, cur)
			return
		}

		cur = l.consumeChar(cur, size, tok)
		c, size = l.getCharAndSize(cur, nil)
		for isIdentifierBody(c) {
			cur = l.consumeChar(cur, size, tok)
			c, size = l.getCharAndSize(cur, nil)
		}
	}
}

// finishIdentifier ends the identifier at cur, interns the spelling and
// hands the token to the preprocessor, which may map it to a keyword or
// start a macro expansion.
func (l *Lexer) finishIdentifier(tok *Token, cur int) {
	l.ptr = cur
	tok.End = uint32(cur)
	tok.Kind = token.Identifier

	var spelled []byte
	if !tok.NeedsClean() {
		spelled = l.buf[tok.Start:tok.End]
	} else {
		spelled = []byte(l.Spelling(*tok))
	}
	tok.Ident = l.pp.IdentifierInfo(spelled)
	l.pp.HandleIdentifier(tok)
}

// lexNumericConstant lexes the remainder of an integer or floating point
// constant; the first digit was already consumed.
func (l *Lexer) lexNumericConstant(tok *Token, cur int) {
	c, size := l.getCharAndSize(cur, nil)
	prev := byte(0)
	for isNumberBody(c) {
		cur = l.consumeChar(cur, size, tok)
		prev = c
		c, size = l.getCharAndSize(cur, nil)
	}

	// A sign after an exponent continues the constant, as in 1e+12.
	if (c == '-' || c == '+') && (prev == 'E' || prev == 'e') {
		l.lexNumericConstant(tok, l.consumeChar(cur, size, tok))
		return
	}

	// Likewise for the binary exponent of a hex float, 0x1p+3.
	if l.features.HexFloats && (c == '-' || c == '+') && (prev == 'P' || prev == 'p') {
		l.diagAt(int(tok.Start), diag.ExtHexFloat, "")
		l.lexNumericConstant(tok, l.consumeChar(cur, size, tok))
		return
	}

	tok.Kind = token.NumericConstant
	l.ptr = cur
	tok.End = uint32(cur)
}

func (l *Lexer) lexStringLiteral(tok *Token, cur int) {
	l.lexQuoted(tok, cur, '"', token.StringLiteral)
}

// lexAngledStringLiteral lexes a <...> filename after #include.
func (l *Lexer) lexAngledStringLiteral(tok *Token, cur int) {
	l.lexQuoted(tok, cur, '>', token.AngleStringLiteral)
}

// lexQuoted lexes the remainder of a quoted literal after the opening
// character. Escaped characters are skipped without interpretation; an
// embedded NUL is diagnosed but kept; a newline or end of file before the
// terminator is an error and the lexer resumes at the next plausible
// boundary.
func (l *Lexer) lexQuoted(tok *Token, cur int, term byte, kind token.Kind) {
	nulOffset := -1

	c, cur := l.getAndAdvanceChar(cur, tok)
	for c != term {
		if c == '\\' {
			// Skip the escaped character.
			c, cur = l.getAndAdvanceChar(cur, tok)
		} else if c == '\n' || c == '\r' || (c == 0 && cur-1 == l.end) {
			l.diagAt(int(tok.Start), diag.ErrUnterminatedString, "")
			l.ptr = cur - 1
			l.lexTokenInternal(tok)
			return
		} else if c == 0 {
			nulOffset = cur - 1
		}
		c, cur = l.getAndAdvanceChar(cur, tok)
	}

	if nulOffset >= 0 {
		l.diagAt(nulOffset, diag.WarnNullInString, "")
	}

	tok.Kind = kind
	l.ptr = cur
	tok.End = uint32(cur)
}

// lexCharConstant lexes the remainder of a character constant after the
// opening quote.
func (l *Lexer) lexCharConstant(tok *Token, cur int) {
	nulOffset := -1

	// Handle the common cases of 'x' and '\y' efficiently.
	c, cur := l.getAndAdvanceChar(cur, tok)
	if c == '\'' {
		l.diagAt(int(tok.Start), diag.ErrEmptyCharacter, "")
		l.ptr = cur
		l.lexTokenInternal(tok)
		return
	} else if c == '\\' {
		c, cur = l.getAndAdvanceChar(cur, tok)
	}

	if c != 0 && c != '\n' && c != '\r' && l.buf[cur] == '\'' {
		cur++
	} else {
		// Generic path for embedded nulls, newlines and wide chars.
		for {
			if c == '\\' {
				c, cur = l.getAndAdvanceChar(cur, tok)
			} else if c == '\n' || c == '\r' || (c == 0 && cur-1 == l.end) {
				l.diagAt(int(tok.Start), diag.ErrUnterminatedChar, "")
				l.ptr = cur - 1
				l.lexTokenInternal(tok)
				return
			} else if c == 0 {
				nulOffset = cur - 1
			}
			c, cur = l.getAndAdvanceChar(cur, tok)
			if c == '\'' {
				break
			}
		}
	}

	if nulOffset >= 0 {
		l.diagAt(nulOffset, diag.WarnNullInChar, "")
	}

	tok.Kind = token.CharConstant
	l.ptr = cur
	tok.End = uint32(cur)
}

// skipWhitespace advances past a run of whitespace, maintaining the
// StartOfLine and LeadingSpace flags of the token under construction.
func (l *Lexer) skipWhitespace(tok *Token, cur int) {
	c := l.buf[cur]
	for {
		// Skip horizontal whitespace aggressively.
		for isHorizontalWhitespace(c) {
			cur++
			c = l.buf[cur]
		}

		if c != '\n' && c != '\r' {
			break
		}

		if l.parsingPreprocessorDirective {
			// End of the directive line; the main loop turns the
			// newline into an eom token.
			l.ptr = cur
			return
		}

		// The next returned token is at the start of a line.
		tok.SetFlag(StartOfLine)
		tok.ClearFlag(LeadingSpace)
		cur++
		c = l.buf[cur]
	}

	// Unless directly after a newline there is leading space.
	if prev := l.buf[cur-1]; prev != '\n' && prev != '\r' {
		tok.SetFlag(LeadingSpace)
	}

	// Fast-skip a comment directly after the whitespace without going
	// back through the main dispatch.
	if c == '/' && l.buf[cur+1] == '/' {
		tok.Start = uint32(cur)
		l.skipBCPLComment(tok, cur+2)
		return
	}
	if c == '/' && l.buf[cur+1] == '*' {
		tok.Start = uint32(cur)
		l.skipBlockComment(tok, cur+2)
		return
	}
	l.ptr = cur
}

// skipBCPLComment skips a // comment; cur points after the introducing
// slashes. Escaped newlines extend the comment and are diagnosed.
func (l *Lexer) skipBCPLComment(tok *Token, cur int) {
	// If // comments are not part of this language, warn once and latch
	// the feature on for the rest of the translation unit.
	if !l.features.BCPLComment {
		l.diagAt(int(tok.Start), diag.ExtBCPLComment, "")
		l.features.BCPLComment = true
	}

	var c byte
	for {
		c = l.buf[cur]
		// The common case is plain text; scan for anything that could
		// end the line or splice it.
		for c != 0 && c != '\\' && c != '?' && c != '\n' && c != '\r' {
			cur++
			c = l.buf[cur]
		}

		if c == '\n' || c == '\r' {
			break
		}

		// Hard case: decode the character to fold escaped newlines.
		oldCur := cur
		c, cur = l.getAndAdvanceChar(cur, tok)

		// If multiple bytes were consumed and one of them was a
		// newline, the comment continues past an escaped newline.
		if cur != oldCur+1 {
			for ; oldCur != cur; oldCur++ {
				if l.buf[oldCur] == '\n' || l.buf[oldCur] == '\r' {
					l.diagAt(oldCur-1, diag.ExtMultiLineBCPLComment, "")
					break
				}
			}
		}

		if cur == l.end+1 {
			// Ran off the end of the buffer; the main loop emits eof.
			l.ptr = cur - 1
			return
		}
		if c == '\n' || c == '\r' {
			break
		}
	}

	// Found but did not consume the newline. Inside a directive the main
	// loop must see it to produce the eom token.
	if l.parsingPreprocessorDirective {
		l.ptr = cur
		return
	}

	cur++
	tok.SetFlag(StartOfLine)
	tok.ClearFlag(LeadingSpace)

	// Indentation commonly follows; handle it here instead of through
	// the main dispatch.
	if isWhitespace(l.buf[cur]) {
		tok.SetFlag(LeadingSpace)
		l.skipWhitespace(tok, cur+1)
		return
	}
	l.ptr = cur
}

// isEndOfBlockCommentWithEscapedNewline reports whether the newline at cur,
// known to be inside a block comment, is part of an escaped newline sitting
// between the * and / that end the comment. Diagnoses the contortion if so.
func (l *Lexer) isEndOfBlockCommentWithEscapedNewline(cur int) bool {
	// Back up off the newline, skipping the partner of a two-character
	// newline sequence.
	cur--
	if l.buf[cur] == '\n' || l.buf[cur] == '\r' {
		if l.buf[cur] == l.buf[cur+1] {
			// \n\n or \r\r is not an escaped newline.
			return false
		}
		cur--
	}

	// Whitespace between the backslash and the newline is allowed.
	hasSpace := false
	for cur > 0 && (isHorizontalWhitespace(l.buf[cur]) || l.buf[cur] == 0) {
		cur--
		hasSpace = true
	}

	if l.buf[cur] == '\\' {
		if cur == 0 || l.buf[cur-1] != '*' {
			return false
		}
	} else {
		// Not a slash; is it the ??/ trigraph for one?
		if cur < 3 || l.buf[cur] != '/' || l.buf[cur-1] != '?' || l.buf[cur-2] != '?' || l.buf[cur-3] != '*' {
			return false
		}
		cur -= 2
		if !l.features.Trigraphs {
			l.diagAt(cur, diag.WarnTrigraphIgnoredBlockComment, "")
			return false
		}
		l.diagAt(cur, diag.WarnTrigraphEndsBlockComment, "")
	}

	l.diagAt(cur, diag.WarnEscapedNewlineBlockCommentEnd, "")
	if hasSpace {
		l.diagAt(cur, diag.WarnBackslashNewlineSpace, "")
	}
	return true
}

// skipBlockComment skips a /* comment; cur points after the opener. Trigraphs
// and escaped newlines inside the body cannot end the comment, so the scan
// stays byte-wise; the one exception is an escaped newline between the
// closing * and /.
func (l *Lexer) skipBlockComment(tok *Token, cur int) {
	// Scan one character past where we should, looking for a '/', then
	// check whether it was preceded by a '*'. This helps with comments
	// full of ****.
	c := l.buf[cur]
	cur++
	if c == 0 && cur == l.end+1 {
		l.diagAt(int(tok.Start), diag.ErrUnterminatedBlockComment, "")
		l.ptr = cur - 1
		return
	}

	for {
		for c != '/' && c != 0 {
			c = l.buf[cur]
			cur++
		}

		if c == '/' {
			if l.buf[cur-2] == '*' {
				// Found the final */.
				break
			}

			if l.buf[cur-2] == '\n' || l.buf[cur-2] == '\r' {
				if l.isEndOfBlockCommentWithEscapedNewline(cur - 2) {
					// The */ straddles an escaped newline.
					break
				}
			}

			if l.buf[cur] == '*' && l.buf[cur+1] != '/' {
				// A /* inside the comment, unless it is /*/ which
				// ends it.
				l.diagAt(cur-1, diag.WarnNestedBlockComment, "")
			}
		} else if c == 0 && cur == l.end+1 {
			l.diagAt(int(tok.Start), diag.ErrUnterminatedBlockComment, "")
			// The */ was probably forgotten entirely; resuming right
			// after the /* would lex the whole comment body.
			l.ptr = cur - 1
			return
		}
		c = l.buf[cur]
		cur++
	}

	// Whitespace commonly follows a comment; handle it here instead of
	// through the main dispatch.
	if isHorizontalWhitespace(l.buf[cur]) {
		tok.SetFlag(LeadingSpace)
		l.skipWhitespace(tok, cur+1)
		return
	}

	l.ptr = cur
	tok.SetFlag(LeadingSpace)
}

//
// Primary lexing entry points.
//

// LexIncludeFilename lexes the filename after #include: either a <...> or a
// "..." form, followed by the end of the directive line. Excess tokens are
// diagnosed and discarded.
func (l *Lexer) LexIncludeFilename(tok *Token) {
	if !l.parsingPreprocessorDirective || l.parsingFilename {
		panic("lexer: LexIncludeFilename outside a preprocessing directive")
	}

	l.parsingFilename = true
	l.Lex(tok)
	l.parsingFilename = false

	// No filename at all?
	if tok.Is(token.EOM) {
		l.pp.Diag(tok.Location(), diag.ErrExpectedFilename, "")
		return
	}

	// Nothing but the end of the line may follow the filename.
	var endTok Token
	l.Lex(&endTok)
	if !endTok.Is(token.EOM) {
		l.pp.Diag(tok.Location(), diag.ErrExpectedFilename, "")
		for !endTok.Is(token.EOM) {
			l.Lex(&endTok)
		}
		tok.Kind = token.EOM
	}
}

// ReadToEndOfLine reads the rest of the current directive line as an
// uninterpreted string, leaving the terminator for the next Lex to turn into
// the eom token. Used for #error and #warning bodies.
func (l *Lexer) ReadToEndOfLine() string {
	if !l.parsingPreprocessorDirective || l.parsingFilename {
		panic("lexer: ReadToEndOfLine outside a preprocessing directive")
	}

	var result []byte
	var tmp Token
	tmp.File = l.fileID
	tmp.Start = uint32(l.ptr)

	cur := l.ptr
	for {
		c, next := l.getAndAdvanceChar(cur, &tmp)
		cur = next
		if c == 0 && cur-1 != l.end {
			// An embedded null is an ordinary character here.
			result = append(result, c)
			continue
		}
		if c != 0 && c != '\r' && c != '\n' {
			result = append(result, c)
			continue
		}

		// Found the end of the line; back up over the terminator and
		// let Lex produce the eom transition.
		l.ptr = cur - 1
		l.Lex(&tmp)
		if !tmp.Is(token.EOM) {
			panic("lexer: expected eom at end of directive line")
		}
		return string(result)
	}
}

// lexEndOfFile handles the sentinel NUL at the end of the buffer: close an
// open directive, drain unterminated conditionals, check the final newline,
// then let the preprocessor pop the include stack.
func (l *Lexer) lexEndOfFile(tok *Token, cur int) {
	// Inside a directive, finish the "line" first; the next token will
	// then be the end of file.
	if l.parsingPreprocessorDirective {
		l.parsingPreprocessorDirective = false
		tok.Kind = token.EOM
		l.ptr = cur
		tok.End = uint32(cur)
		return
	}

	for {
		ci, ok := l.PopConditionalLevel()
		if !ok {
			break
		}
		l.pp.Diag(ci.IfLoc, diag.ErrUnterminatedConditional, "")
	}

	// An empty file or one not ending in a newline gets a pedantic
	// warning.
	if cur == 0 || (l.buf[cur-1] != '\n' && l.buf[cur-1] != '\r') {
		l.diagAt(l.end, diag.ExtNoNewlineAtEOF, "")
	}

	l.ptr = cur
	l.pp.HandleEndOfFile(tok)
}

// dispatchDirective hands a # token at the start of a line to the
// preprocessor. It reports whether the caller should restart lexing in this
// buffer; otherwise the preprocessor switched lexers and tok already holds
// the next token.
func (l *Lexer) dispatchDirective(tok *Token, cur int) (restart bool) {
	l.ptr = cur
	l.pp.HandleDirective(tok)

	// If the preprocessor did not switch lexers, keep going here. A
	// #include wants the next token flagged as starting its line.
	if l.pp.IsCurrentLexer(l) {
		if l.isAtStartOfLine {
			tok.SetFlag(StartOfLine)
			l.isAtStartOfLine = false
		}
		return true
	}

	l.pp.Lex(tok)
	return false
}

// lexTokenInternal is the main dispatch: read one logical character and
// branch. No token escapes half-constructed; error paths re-enter the loop
// or recurse after repositioning the cursor.
func (l *Lexer) lexTokenInternal(tok *Token) {
	for {
		// New token; it can't need cleaning yet.
		tok.ClearFlag(NeedsCleaning)

		cur := l.ptr
		tok.File = l.fileID
		tok.Start = uint32(cur)

		c, cur := l.getAndAdvanceChar(cur, tok)
		var kind token.Kind

		switch c {
		case 0:
			if cur-1 == l.end {
				// Retreat onto the sentinel and wrap up.
				l.lexEndOfFile(tok, cur-1)
				return
			}
			l.diagAt(cur-1, diag.WarnNullInFile, "")
			tok.SetFlag(LeadingSpace)
			l.skipWhitespace(tok, cur)
			continue

		case '\n', '\r':
			// Inside a directive a newline ends the "line".
			if l.parsingPreprocessorDirective {
				l.parsingPreprocessorDirective = false
				l.isAtStartOfLine = true
				kind = token.EOM
				break
			}
			tok.SetFlag(StartOfLine)
			tok.ClearFlag(LeadingSpace)
			l.skipWhitespace(tok, cur)
			continue

		case ' ', '\t', '\f', '\v':
			tok.SetFlag(LeadingSpace)
			l.skipWhitespace(tok, cur)
			continue

		case 'L':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '"' {
				// Wide string literal.
				l.lexStringLiteral(tok, l.consumeChar(cur, size, tok))
				return
			}
			if c2 == '\'' {
				// Wide character constant.
				l.lexCharConstant(tok, l.consumeChar(cur, size, tok))
				return
			}
			// Otherwise L starts an ordinary identifier.
			l.lexIdentifier(tok, cur)
			return

		case '\'':
			l.lexCharConstant(tok, cur)
			return

		case '"':
			l.lexStringLiteral(tok, cur)
			return

		case '?':
			kind = token.Question
		case '[':
			kind = token.LSquare
		case ']':
			kind = token.RSquare
		case '(':
			kind = token.LParen
		case ')':
			kind = token.RParen
		case '{':
			kind = token.LBrace
		case '}':
			kind = token.RBrace
		case '~':
			kind = token.Tilde
		case ';':
			kind = token.Semi
		case ',':
			kind = token.Comma

		case '.':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 >= '0' && c2 <= '9' {
				l.lexNumericConstant(tok, l.consumeChar(cur, size, tok))
				return
			}
			if l.features.CPlusPlus && c2 == '*' {
				kind = token.PeriodStar
				cur = l.consumeChar(cur, size, tok)
			} else if c2 == '.' {
				c3, size2 := l.getCharAndSize(cur+size, nil)
				if c3 == '.' {
					kind = token.Ellipsis
					cur = l.consumeChar(l.consumeChar(cur, size, tok), size2, tok)
				} else {
					kind = token.Period
				}
			} else {
				kind = token.Period
			}

		case '&':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '&' {
				kind = token.AmpAmp
				cur = l.consumeChar(cur, size, tok)
			} else if c2 == '=' {
				kind = token.AmpEqual
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Amp
			}

		case '*':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '=' {
				kind = token.StarEqual
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Star
			}

		case '+':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '+' {
				kind = token.PlusPlus
				cur = l.consumeChar(cur, size, tok)
			} else if c2 == '=' {
				kind = token.PlusEqual
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Plus
			}

		case '-':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '-' {
				kind = token.MinusMinus
				cur = l.consumeChar(cur, size, tok)
			} else if c2 == '>' && l.features.CPlusPlus {
				c3, size2 := l.getCharAndSize(cur+size, nil)
				if c3 == '*' {
					kind = token.ArrowStar
					cur = l.consumeChar(l.consumeChar(cur, size, tok), size2, tok)
				} else {
					kind = token.Arrow
					cur = l.consumeChar(cur, size, tok)
				}
			} else if c2 == '>' {
				kind = token.Arrow
				cur = l.consumeChar(cur, size, tok)
			} else if c2 == '=' {
				kind = token.MinusEqual
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Minus
			}

		case '!':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '=' {
				kind = token.ExclaimEqual
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Exclaim
			}

		case '/':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '/' {
				// Line comment.
				tok.SetFlag(LeadingSpace)
				l.skipBCPLComment(tok, l.consumeChar(cur, size, tok))
				continue
			}
			if c2 == '*' {
				// Block comment.
				tok.SetFlag(LeadingSpace)
				l.skipBlockComment(tok, l.consumeChar(cur, size, tok))
				continue
			}
			if c2 == '=' {
				kind = token.SlashEqual
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Slash
			}

		case '%':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '=' {
				kind = token.PercentEqual
				cur = l.consumeChar(cur, size, tok)
			} else if l.features.Digraphs && c2 == '>' {
				// '%>' is '}'.
				kind = token.RBrace
				cur = l.consumeChar(cur, size, tok)
			} else if l.features.Digraphs && c2 == ':' {
				cur = l.consumeChar(cur, size, tok)
				c3, size2 := l.getCharAndSize(cur, nil)
				isHashHash := false
				if c3 == '%' {
					if c4, size3 := l.getCharAndSize(cur+size2, nil); c4 == ':' {
						// '%:%:' is '##'.
						isHashHash = true
						kind = token.HashHash
						cur = l.consumeChar(l.consumeChar(cur, size2, tok), size3, tok)
					}
				}
				if !isHashHash {
					// '%:' is '#'; at the start of a line it begins a
					// preprocessing directive.
					kind = token.Hash
					if tok.IsAtStartOfLine() && !l.pp.IsSkipping() {
						tok.Kind = kind
						tok.End = uint32(cur)
						if l.dispatchDirective(tok, cur) {
							continue
						}
						return
					}
				}
			} else {
				kind = token.Percent
			}

		case '<':
			c2, size := l.getCharAndSize(cur, nil)
			if l.parsingFilename {
				// The peeked character is part of the filename; don't
				// step past the sentinel at end of file.
				next := cur + size
				if next > l.end {
					next = l.end
				}
				l.lexAngledStringLiteral(tok, next)
				return
			}
			if c2 == '<' {
				c3, size2 := l.getCharAndSize(cur+size, nil)
				if c3 == '=' {
					kind = token.LessLessEqual
					cur = l.consumeChar(l.consumeChar(cur, size, tok), size2, tok)
				} else {
					kind = token.LessLess
					cur = l.consumeChar(cur, size, tok)
				}
			} else if c2 == '=' {
				kind = token.LessEqual
				cur = l.consumeChar(cur, size, tok)
			} else if l.features.Digraphs && c2 == ':' {
				// '<:' is '['.
				kind = token.LSquare
				cur = l.consumeChar(cur, size, tok)
			} else if l.features.Digraphs && c2 == '%' {
				// '<%' is '{'.
				kind = token.LBrace
				cur = l.consumeChar(cur, size, tok)
			} else if l.features.CPPMinMax && c2 == '?' {
				cur = l.consumeChar(cur, size, tok)
				l.pp.Diag(tok.Location(), diag.WarnMinMaxDeprecated, "")
				if c3, size2 := l.getCharAndSize(cur, nil); c3 == '=' {
					kind = token.LessQuestionEqual
					cur = l.consumeChar(cur, size2, tok)
				} else {
					kind = token.LessQuestion
				}
			} else {
				kind = token.Less
			}

		case '>':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '=' {
				kind = token.GreaterEqual
				cur = l.consumeChar(cur, size, tok)
			} else if c2 == '>' {
				c3, size2 := l.getCharAndSize(cur+size, nil)
				if c3 == '=' {
					kind = token.GreaterGreaterEqual
					cur = l.consumeChar(l.consumeChar(cur, size, tok), size2, tok)
				} else {
					kind = token.GreaterGreater
					cur = l.consumeChar(cur, size, tok)
				}
			} else if l.features.CPPMinMax && c2 == '?' {
				cur = l.consumeChar(cur, size, tok)
				l.pp.Diag(tok.Location(), diag.WarnMinMaxDeprecated, "")
				if c3, size2 := l.getCharAndSize(cur, nil); c3 == '=' {
					kind = token.GreaterQuestionEqual
					cur = l.consumeChar(cur, size2, tok)
				} else {
					kind = token.GreaterQuestion
				}
			} else {
				kind = token.Greater
			}

		case '^':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '=' {
				kind = token.CaretEqual
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Caret
			}

		case '|':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '=' {
				kind = token.PipeEqual
				cur = l.consumeChar(cur, size, tok)
			} else if c2 == '|' {
				kind = token.PipePipe
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Pipe
			}

		case ':':
			c2, size := l.getCharAndSize(cur, nil)
			if l.features.Digraphs && c2 == '>' {
				// ':>' is ']'.
				kind = token.RSquare
				cur = l.consumeChar(cur, size, tok)
			} else if l.features.CPlusPlus && c2 == ':' {
				kind = token.ColonColon
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Colon
			}

		case '=':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '=' {
				kind = token.EqualEqual
				cur = l.consumeChar(cur, size, tok)
			} else {
				kind = token.Equal
			}

		case '#':
			c2, size := l.getCharAndSize(cur, nil)
			if c2 == '#' {
				kind = token.HashHash
				cur = l.consumeChar(cur, size, tok)
			} else {
				// At the start of a line a # begins a preprocessing
				// directive.
				kind = token.Hash
				if tok.IsAtStartOfLine() && !l.pp.IsSkipping() {
					tok.Kind = kind
					tok.End = uint32(cur)
					if l.dispatchDirective(tok, cur) {
						continue
					}
					return
				}
			}

		default:
			if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' {
				l.lexIdentifier(tok, cur)
				return
			}
			if c >= '0' && c <= '9' {
				l.lexNumericConstant(tok, cur)
				return
			}
			if c == '@' && l.features.ObjC1 {
				kind = token.At
				break
			}
			if c == '$' && l.features.DollarIdents {
				l.diagAt(cur-1, diag.ExtDollarInIdentifier, "")
				l.lexIdentifier(tok, cur)
				return
			}

			if !l.pp.IsSkipping() {
				l.diagAt(cur-1, diag.ErrStrayCharacter, "")
			}
			l.ptr = cur
			continue
		}

		// Update the end of the token and the cursor.
		tok.Kind = kind
		l.ptr = cur
		tok.End = uint32(cur)
		return
	}
}
