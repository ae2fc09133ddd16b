package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/clex/internal/config"
	"github.com/standardbeagle/clex/internal/diag"
	"github.com/standardbeagle/clex/internal/ident"
	"github.com/standardbeagle/clex/internal/source"
	"github.com/standardbeagle/clex/internal/token"
)

// diagRecord is one diagnostic captured by the stub preprocessor.
type diagRecord struct {
	loc   source.Location
	id    diag.ID
	extra string
}

// stubPP is a minimal preprocessor for driving a single lexer: it records
// diagnostics and directive tokens and never switches lexers.
type stubPP struct {
	table *ident.Table
	opts  config.LangOptions
	lexer *Lexer

	diags      []diagRecord
	directives []Token

	// enterDirective controls whether HandleDirective puts the lexer
	// into directive mode so eom tokens are produced.
	enterDirective bool

	// onDirective, when set, runs instead of the default handling.
	onDirective func(hash *Token)
}

func (s *stubPP) Lex(tok *Token)              { s.lexer.Lex(tok) }
func (s *stubPP) HandleIdentifier(tok *Token) {}

func (s *stubPP) HandleDirective(hash *Token) {
	s.directives = append(s.directives, *hash)
	if s.onDirective != nil {
		s.onDirective(hash)
		return
	}
	if s.enterDirective {
		s.lexer.SetInDirective(true)
	}
}

func (s *stubPP) HandleEndOfFile(tok *Token) {
	end := uint32(len(s.lexer.Buffer()) - 1)
	tok.Kind = token.EOF
	tok.File = s.lexer.FileID()
	tok.Start = end
	tok.End = end
	tok.Ident = nil
}

func (s *stubPP) HandleEndOfMacro(tok *Token) {
	tok.Kind = token.EOF
}

func (s *stubPP) IsCurrentLexer(l *Lexer) bool { return l == s.lexer }
func (s *stubPP) IsSkipping() bool             { return false }

func (s *stubPP) IdentifierInfo(name []byte) *ident.Info {
	return s.table.Get(name)
}

func (s *stubPP) Diag(loc source.Location, id diag.ID, extra string) {
	s.diags = append(s.diags, diagRecord{loc: loc, id: id, extra: extra})
}

func (s *stubPP) LangOptions() config.LangOptions { return s.opts }

func (s *stubPP) hasDiag(id diag.ID) bool {
	for _, d := range s.diags {
		if d.id == id {
			return true
		}
	}
	return false
}

// newTestLexer builds a lexer over src with a sentinel appended.
func newTestLexer(t *testing.T, src string, opts config.LangOptions) (*Lexer, *stubPP) {
	t.Helper()
	pp := &stubPP{table: ident.NewTable(), opts: opts}
	buf := append([]byte(src), 0)
	pp.lexer = New(buf, 1, pp)
	return pp.lexer, pp
}

// c99Options are the default feature flags used by most tests.
func c99Options() config.LangOptions {
	return config.LangOptions{
		Trigraphs:   true,
		BCPLComment: true,
		Digraphs:    true,
		HexFloats:   true,
	}
}

// lexed is one observed token in compact form.
type lexed struct {
	kind     token.Kind
	spelling string
}

// lexAll drains the lexer, returning kinds and canonical spellings through
// the eof token.
func lexAll(t *testing.T, l *Lexer) []lexed {
	t.Helper()
	var out []lexed
	var tok Token
	for i := 0; i < 10000; i++ {
		l.Lex(&tok)
		spelling := ""
		if !tok.Is(token.EOF) {
			spelling = l.Spelling(tok)
		}
		out = append(out, lexed{kind: tok.Kind, spelling: spelling})
		if tok.Is(token.EOF) {
			return out
		}
	}
	t.Fatal("lexer did not reach eof")
	return nil
}

func TestLexBasicTokens(t *testing.T) {
	l, _ := newTestLexer(t, "int x = 1;\n", c99Options())
	got := lexAll(t, l)

	want := []lexed{
		{token.Identifier, "int"},
		{token.Identifier, "x"},
		{token.Equal, "="},
		{token.NumericConstant, "1"},
		{token.Semi, ";"},
		{token.EOF, ""},
	}
	assert.Equal(t, want, got)
}

func TestLexPunctuators(t *testing.T) {
	tests := []struct {
		src  string
		want []token.Kind
	}{
		{"<<= << <= <", []token.Kind{token.LessLessEqual, token.LessLess, token.LessEqual, token.Less}},
		{">>= >> >= >", []token.Kind{token.GreaterGreaterEqual, token.GreaterGreater, token.GreaterEqual, token.Greater}},
		{"&& &= &", []token.Kind{token.AmpAmp, token.AmpEqual, token.Amp}},
		{"|| |= |", []token.Kind{token.PipePipe, token.PipeEqual, token.Pipe}},
		{"++ += +", []token.Kind{token.PlusPlus, token.PlusEqual, token.Plus}},
		{"-- -> -= -", []token.Kind{token.MinusMinus, token.Arrow, token.MinusEqual, token.Minus}},
		{"== =", []token.Kind{token.EqualEqual, token.Equal}},
		{"!= !", []token.Kind{token.ExclaimEqual, token.Exclaim}},
		{"*= *", []token.Kind{token.StarEqual, token.Star}},
		{"/= /", []token.Kind{token.SlashEqual, token.Slash}},
		{"%= %", []token.Kind{token.PercentEqual, token.Percent}},
		{"^= ^", []token.Kind{token.CaretEqual, token.Caret}},
		{"... . ?", []token.Kind{token.Ellipsis, token.Period, token.Question}},
		{"[ ] ( ) { } ~ ; ,", []token.Kind{
			token.LSquare, token.RSquare, token.LParen, token.RParen,
			token.LBrace, token.RBrace, token.Tilde, token.Semi, token.Comma,
		}},
		{": ##", []token.Kind{token.Colon, token.HashHash}},
	}

	for _, tt := range tests {
		l, _ := newTestLexer(t, tt.src+"\n", c99Options())
		got := lexAll(t, l)
		var kinds []token.Kind
		for _, g := range got[:len(got)-1] {
			kinds = append(kinds, g.kind)
		}
		assert.Equal(t, tt.want, kinds, "src %q", tt.src)
	}
}

func TestLexCPlusPlusPunctuators(t *testing.T) {
	opts := c99Options()
	opts.CPlusPlus = true

	l, _ := newTestLexer(t, "a::b ->* .*\n", opts)
	got := lexAll(t, l)
	kinds := []token.Kind{got[1].kind, got[3].kind, got[4].kind}
	assert.Equal(t, []token.Kind{token.ColonColon, token.ArrowStar, token.PeriodStar}, kinds)
}

func TestLexMinMaxOperators(t *testing.T) {
	opts := c99Options()
	opts.CPlusPlus = true
	opts.CPPMinMax = true

	l, pp := newTestLexer(t, "a <? b >?= c <?= d >? e\n", opts)
	got := lexAll(t, l)

	var kinds []token.Kind
	for _, g := range got {
		kinds = append(kinds, g.kind)
	}
	assert.Equal(t, []token.Kind{
		token.Identifier, token.LessQuestion,
		token.Identifier, token.GreaterQuestionEqual,
		token.Identifier, token.LessQuestionEqual,
		token.Identifier, token.GreaterQuestion,
		token.Identifier, token.EOF,
	}, kinds)

	count := 0
	for _, d := range pp.diags {
		if d.id == diag.WarnMinMaxDeprecated {
			count++
		}
	}
	assert.Equal(t, 4, count)
}

func TestLineSplice(t *testing.T) {
	l, _ := newTestLexer(t, "a \\\n b\n", c99Options())

	var tok Token
	l.Lex(&tok)
	require.True(t, tok.Is(token.Identifier))
	assert.Equal(t, "a", l.Spelling(tok))
	assert.True(t, tok.IsAtStartOfLine())

	l.Lex(&tok)
	require.True(t, tok.Is(token.Identifier))
	assert.Equal(t, "b", l.Spelling(tok))
	assert.False(t, tok.IsAtStartOfLine(), "the newline was spliced away")
	assert.True(t, tok.HasLeadingSpace())
	assert.False(t, tok.NeedsClean())

	l.Lex(&tok)
	assert.True(t, tok.Is(token.EOF))
}

func TestSplicedIdentifier(t *testing.T) {
	// An escaped newline inside an identifier needs cleaning.
	l, _ := newTestLexer(t, "ab\\\ncd\n", c99Options())

	var tok Token
	l.Lex(&tok)
	require.True(t, tok.Is(token.Identifier))
	assert.True(t, tok.NeedsClean())
	assert.Equal(t, "abcd", l.Spelling(tok))
	assert.Equal(t, "abcd", tok.Ident.Name())
}

func TestBackslashSpaceNewline(t *testing.T) {
	l, pp := newTestLexer(t, "ab\\ \ncd\n", c99Options())

	var tok Token
	l.Lex(&tok)
	require.True(t, tok.Is(token.Identifier))
	assert.Equal(t, "abcd", l.Spelling(tok))
	assert.True(t, pp.hasDiag(diag.WarnBackslashNewlineSpace))
}

func TestTrigraphConversion(t *testing.T) {
	// ??( and ??) are [ and ].
	l, pp := newTestLexer(t, "??(??)\n", c99Options())
	got := lexAll(t, l)
	assert.Equal(t, token.LSquare, got[0].kind)
	assert.Equal(t, "[", got[0].spelling)
	assert.Equal(t, token.RSquare, got[1].kind)
	assert.Equal(t, "]", got[1].spelling)
	assert.True(t, pp.hasDiag(diag.WarnTrigraphConverted))
}

func TestTrigraphDisabled(t *testing.T) {
	opts := c99Options()
	opts.Trigraphs = false

	l, pp := newTestLexer(t, "??(\n", opts)
	got := lexAll(t, l)
	// Three separate tokens: ?, ?, (.
	assert.Equal(t, token.Question, got[0].kind)
	assert.Equal(t, token.Question, got[1].kind)
	assert.Equal(t, token.LParen, got[2].kind)
	assert.True(t, pp.hasDiag(diag.WarnTrigraphIgnored))
}

func TestTrigraphDirective(t *testing.T) {
	// ??= is #; at the start of a line it triggers directive dispatch.
	l, pp := newTestLexer(t, "??=define X 1\n", c99Options())
	pp.enterDirective = true

	var tok Token
	l.Lex(&tok)
	require.Len(t, pp.directives, 1)
	hash := pp.directives[0]
	assert.Equal(t, token.Hash, hash.Kind)
	assert.True(t, hash.NeedsClean())
	assert.Equal(t, "#", l.Spelling(hash))

	// The directive line lexes as identifiers and a constant, then eom.
	assert.Equal(t, token.Identifier, tok.Kind)
	assert.Equal(t, "define", l.Spelling(tok))
	var kinds []token.Kind
	for !tok.Is(token.EOM) {
		l.Lex(&tok)
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{token.Identifier, token.NumericConstant, token.EOM}, kinds)
}

func TestUnterminatedString(t *testing.T) {
	l, pp := newTestLexer(t, "\"hello\n", c99Options())

	var tok Token
	l.Lex(&tok)
	assert.True(t, tok.Is(token.EOF), "lexer recovers at the next line")
	require.True(t, pp.hasDiag(diag.ErrUnterminatedString))
	assert.Equal(t, source.NewLocation(1, 0), pp.diags[0].loc)
}

func TestStringWithEscapes(t *testing.T) {
	l, _ := newTestLexer(t, "\"a\\\"b\" 'c' L\"w\" L'x'\n", c99Options())
	got := lexAll(t, l)

	want := []lexed{
		{token.StringLiteral, "\"a\\\"b\""},
		{token.CharConstant, "'c'"},
		{token.StringLiteral, "L\"w\""},
		{token.CharConstant, "L'x'"},
		{token.EOF, ""},
	}
	assert.Equal(t, want, got)
}

func TestEmptyCharConstant(t *testing.T) {
	l, pp := newTestLexer(t, "'' x\n", c99Options())
	got := lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.ErrEmptyCharacter))
	assert.Equal(t, token.Identifier, got[0].kind)
	assert.Equal(t, "x", got[0].spelling)
}

func TestNestedBlockComment(t *testing.T) {
	l, pp := newTestLexer(t, "/* a /* b */ c\n", c99Options())
	got := lexAll(t, l)

	require.True(t, pp.hasDiag(diag.WarnNestedBlockComment))
	// The diagnostic points at the inner /*.
	for _, d := range pp.diags {
		if d.id == diag.WarnNestedBlockComment {
			assert.Equal(t, uint32(5), d.loc.RawOffset())
		}
	}
	assert.Equal(t, token.Identifier, got[0].kind)
	assert.Equal(t, "c", got[0].spelling)
}

func TestUnterminatedBlockComment(t *testing.T) {
	l, pp := newTestLexer(t, "a /* b\n", c99Options())
	got := lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.ErrUnterminatedBlockComment))
	assert.Equal(t, token.Identifier, got[0].kind)
	assert.Equal(t, token.EOF, got[1].kind)
}

func TestBlockCommentSeparatesTokens(t *testing.T) {
	l, _ := newTestLexer(t, "a/**/b\n", c99Options())
	got := lexAll(t, l)
	assert.Equal(t, "a", got[0].spelling)
	assert.Equal(t, "b", got[1].spelling)
}

func TestBCPLComment(t *testing.T) {
	l, _ := newTestLexer(t, "a // comment text\nb\n", c99Options())
	got := lexAll(t, l)
	assert.Equal(t, "a", got[0].spelling)
	assert.Equal(t, "b", got[1].spelling)
}

func TestBCPLCommentExtensionLatches(t *testing.T) {
	opts := c99Options()
	opts.BCPLComment = false

	l, pp := newTestLexer(t, "// one\n// two\nx\n", opts)
	got := lexAll(t, l)
	assert.Equal(t, "x", got[0].spelling)

	count := 0
	for _, d := range pp.diags {
		if d.id == diag.ExtBCPLComment {
			count++
		}
	}
	assert.Equal(t, 1, count, "the extension is reported once per translation unit")
	assert.True(t, l.Features().BCPLComment, "the feature latches on")
}

func TestMultiLineBCPLComment(t *testing.T) {
	l, pp := newTestLexer(t, "// one \\\ntwo\nx\n", c99Options())
	got := lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.ExtMultiLineBCPLComment))
	assert.Equal(t, "x", got[0].spelling, "the spliced line is part of the comment")
}

func TestBlockCommentEscapedNewlineEnd(t *testing.T) {
	// The */ is split by an escaped newline between * and /.
	l, pp := newTestLexer(t, "/* body *\\\n/ x\n", c99Options())
	got := lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.WarnEscapedNewlineBlockCommentEnd))
	assert.Equal(t, "x", got[0].spelling)
}

func TestDigraphs(t *testing.T) {
	l, _ := newTestLexer(t, "<: :> <% %> %:\n", c99Options())
	got := lexAll(t, l)

	var kinds []token.Kind
	for _, g := range got {
		kinds = append(kinds, g.kind)
	}
	assert.Equal(t, []token.Kind{
		token.LSquare, token.RSquare, token.LBrace, token.RBrace, token.Hash,
		token.EOF,
	}, kinds)

	// Digraph tokens keep their source spelling.
	assert.Equal(t, "<:", got[0].spelling)
}

func TestDigraphsDisabled(t *testing.T) {
	opts := c99Options()
	opts.Digraphs = false

	l, _ := newTestLexer(t, "<:\n", opts)
	got := lexAll(t, l)
	assert.Equal(t, token.Less, got[0].kind)
	assert.Equal(t, token.Colon, got[1].kind)
}

func TestHashHashDigraph(t *testing.T) {
	// %:%: maps to ## when not at the start of a line.
	l, _ := newTestLexer(t, "x %:%: y\n", c99Options())
	got := lexAll(t, l)
	assert.Equal(t, token.HashHash, got[1].kind)
}

func TestHashMidLineIsNotDirective(t *testing.T) {
	l, pp := newTestLexer(t, "x # y\n", c99Options())
	got := lexAll(t, l)
	assert.Empty(t, pp.directives)
	assert.Equal(t, token.Hash, got[1].kind)
}

func TestDirectiveDispatch(t *testing.T) {
	l, pp := newTestLexer(t, "#define X\nrest\n", c99Options())
	pp.enterDirective = true

	got := lexAll(t, l)
	require.Len(t, pp.directives, 1)
	assert.Equal(t, token.Hash, pp.directives[0].Kind)
	assert.False(t, pp.directives[0].NeedsClean())

	var kinds []token.Kind
	for _, g := range got {
		kinds = append(kinds, g.kind)
	}
	assert.Equal(t, []token.Kind{
		token.Identifier, token.Identifier, token.EOM,
		token.Identifier, token.EOF,
	}, kinds)
}

func TestLexIncludeFilename(t *testing.T) {
	var angled, quoted Token
	l, pp := newTestLexer(t, "#include <foo/bar.h>\n#include \"baz.h\"\n", c99Options())
	n := 0
	pp.onDirective = func(hash *Token) {
		pp.lexer.SetInDirective(true)
		var name Token
		pp.lexer.Lex(&name) // the "include" identifier
		if n == 0 {
			pp.lexer.LexIncludeFilename(&angled)
		} else {
			pp.lexer.LexIncludeFilename(&quoted)
		}
		n++
	}

	got := lexAll(t, l)
	assert.Equal(t, token.EOF, got[len(got)-1].kind)

	assert.Equal(t, token.AngleStringLiteral, angled.Kind)
	assert.Equal(t, "<foo/bar.h>", l.Spelling(angled))
	assert.Equal(t, token.StringLiteral, quoted.Kind)
	assert.Equal(t, "\"baz.h\"", l.Spelling(quoted))
}

func TestLexIncludeFilenameExcessTokens(t *testing.T) {
	var fn Token
	l, pp := newTestLexer(t, "#include <a.h> extra junk\n", c99Options())
	pp.onDirective = func(hash *Token) {
		pp.lexer.SetInDirective(true)
		var name Token
		pp.lexer.Lex(&name)
		pp.lexer.LexIncludeFilename(&fn)
	}

	lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.ErrExpectedFilename))
	assert.Equal(t, token.EOM, fn.Kind, "excess tokens are discarded")
}

func TestReadToEndOfLine(t *testing.T) {
	var body string
	l, pp := newTestLexer(t, "#error some text here\nafter\n", c99Options())
	pp.onDirective = func(hash *Token) {
		pp.lexer.SetInDirective(true)
		var name Token
		pp.lexer.Lex(&name) // the "error" identifier
		body = pp.lexer.ReadToEndOfLine()
	}

	got := lexAll(t, l)
	assert.Equal(t, " some text here", body)
	assert.Equal(t, "after", got[0].spelling)
}

func TestNullInFile(t *testing.T) {
	l, pp := newTestLexer(t, "a\x00b\n", c99Options())
	got := lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.WarnNullInFile))
	assert.Equal(t, "a", got[0].spelling)
	assert.Equal(t, "b", got[1].spelling)
}

func TestNullInString(t *testing.T) {
	l, pp := newTestLexer(t, "\"a\x00b\"\n", c99Options())
	got := lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.WarnNullInString))
	assert.Equal(t, token.StringLiteral, got[0].kind)
}

func TestNoNewlineAtEOF(t *testing.T) {
	l, pp := newTestLexer(t, "x", c99Options())
	lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.ExtNoNewlineAtEOF))
}

func TestNewlineAtEOFIsClean(t *testing.T) {
	l, pp := newTestLexer(t, "x\n", c99Options())
	lexAll(t, l)
	assert.False(t, pp.hasDiag(diag.ExtNoNewlineAtEOF))
}

func TestUnterminatedConditionalAtEOF(t *testing.T) {
	l, pp := newTestLexer(t, "x\n", c99Options())
	ifLoc := source.NewLocation(1, 0)
	l.PushConditionalLevel(PPConditionalInfo{IfLoc: ifLoc})

	lexAll(t, l)
	require.True(t, pp.hasDiag(diag.ErrUnterminatedConditional))
	assert.Equal(t, 0, l.NumConditionalLevels())
}

func TestStrayCharacter(t *testing.T) {
	l, pp := newTestLexer(t, "a ` b\n", c99Options())
	got := lexAll(t, l)
	assert.True(t, pp.hasDiag(diag.ErrStrayCharacter))
	assert.Equal(t, "a", got[0].spelling)
	assert.Equal(t, "b", got[1].spelling)
}

func TestDollarIdents(t *testing.T) {
	opts := c99Options()
	opts.DollarIdents = true

	l, pp := newTestLexer(t, "a$b\n", opts)
	got := lexAll(t, l)
	assert.Equal(t, token.Identifier, got[0].kind)
	assert.Equal(t, "a$b", got[0].spelling)
	assert.True(t, pp.hasDiag(diag.ExtDollarInIdentifier))
}

func TestDollarIdentsDisabled(t *testing.T) {
	l, pp := newTestLexer(t, "a$b\n", c99Options())
	got := lexAll(t, l)
	// $ is a stray character; a and b are separate identifiers.
	assert.Equal(t, "a", got[0].spelling)
	assert.Equal(t, "b", got[1].spelling)
	assert.True(t, pp.hasDiag(diag.ErrStrayCharacter))
}

func TestObjCAt(t *testing.T) {
	opts := c99Options()
	opts.ObjC1 = true
	l, _ := newTestLexer(t, "@interface\n", opts)
	got := lexAll(t, l)
	assert.Equal(t, token.At, got[0].kind)
	assert.Equal(t, token.Identifier, got[1].kind)
}

func TestNumericConstants(t *testing.T) {
	l, _ := newTestLexer(t, "42 3.14 1e+12 0x1fUL .5 0x1p-3\n", c99Options())
	got := lexAll(t, l)

	want := []string{"42", "3.14", "1e+12", "0x1fUL", ".5", "0x1p-3"}
	require.Len(t, got, len(want)+1)
	for i, w := range want {
		assert.Equal(t, token.NumericConstant, got[i].kind, "constant %q", w)
		assert.Equal(t, w, got[i].spelling)
	}
}

func TestSpellingFidelity(t *testing.T) {
	// Re-scanning the raw range with no-warn decoding reproduces the
	// canonical spelling for any token.
	srcs := []string{
		"int x = 1;\n",
		"ab\\\ncd + ??(x??)\n",
		"\"str\\\ning\"\n",
	}
	for _, src := range srcs {
		l, _ := newTestLexer(t, src, c99Options())
		var tok Token
		for {
			l.Lex(&tok)
			if tok.Is(token.EOF) {
				break
			}
			raw := l.Buffer()[tok.Start:tok.End]
			var rescanned []byte
			for cur, end := int(tok.Start), int(tok.End); cur != end; {
				c, size := charAndSizeNoWarn(l.Buffer(), cur, c99Options())
				rescanned = append(rescanned, c)
				cur += size
			}
			assert.Equal(t, string(rescanned), l.Spelling(tok), "src %q raw %q", src, raw)
			if !tok.NeedsClean() {
				assert.Equal(t, string(raw), l.Spelling(tok))
			}
		}
	}
}

func TestTrigraphSpliceEquivalence(t *testing.T) {
	// A source using trigraphs and splices lexes to the same kinds and
	// canonical spellings as the pre-expanded source.
	dirty := "a??/\nb = x??(1??);\n" // ??/ is \, so a\<newline>b splices to ab
	clean := "ab = x[1];\n"

	ld, _ := newTestLexer(t, dirty, c99Options())
	lc, _ := newTestLexer(t, clean, c99Options())

	gotDirty := lexAll(t, ld)
	gotClean := lexAll(t, lc)
	assert.Equal(t, gotClean, gotDirty)
}

func TestTokenLocations(t *testing.T) {
	l, _ := newTestLexer(t, "aa bb\n", c99Options())
	var tok Token
	l.Lex(&tok)
	assert.Equal(t, source.NewLocation(1, 0), tok.Location())
	l.Lex(&tok)
	assert.Equal(t, source.NewLocation(1, 3), tok.Location())
	assert.Equal(t, uint32(2), tok.Length())
}

func TestSentinelRequired(t *testing.T) {
	pp := &stubPP{table: ident.NewTable(), opts: c99Options()}
	assert.Panics(t, func() { New([]byte("no sentinel"), 1, pp) })
	assert.Panics(t, func() { New(nil, 1, pp) })
}
