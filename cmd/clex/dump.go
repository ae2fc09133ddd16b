package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/clex/internal/config"
	"github.com/standardbeagle/clex/internal/debug"
	"github.com/standardbeagle/clex/internal/diag"
	"github.com/standardbeagle/clex/internal/fileman"
	"github.com/standardbeagle/clex/internal/ident"
	"github.com/standardbeagle/clex/internal/lexer"
	"github.com/standardbeagle/clex/internal/pp"
	"github.com/standardbeagle/clex/internal/source"
	"github.com/standardbeagle/clex/internal/token"
)

// translationUnit bundles the per-unit state: every unit gets its own
// managers so units can be lexed concurrently.
type translationUnit struct {
	files  *fileman.FileManager
	srcs   *source.Manager
	idents *ident.Table
	engine *diag.Engine
	pp     *pp.Preprocessor

	out  io.Writer
	errs io.Writer
}

// HandleDiagnostic renders a diagnostic as file:line:col: level: message.
func (tu *translationUnit) HandleDiagnostic(level diag.Level, loc source.Location, id diag.ID, extra string) {
	msg := diag.Format(id, extra)
	if !loc.IsValid() {
		fmt.Fprintf(tu.errs, "clex: %s: %s\n", level, msg)
		return
	}
	name := "<unknown>"
	if fi := tu.srcs.FileInfoForID(loc.File()); fi != nil {
		name = fi.Name()
	}
	fmt.Fprintf(tu.errs, "%s:%d:%d: %s: %s\n",
		name, tu.srcs.LineNumber(loc), tu.srcs.ColumnNumber(loc), level, msg)
}

// newTranslationUnit wires the managers, diagnostic engine and preprocessor
// for one input.
func newTranslationUnit(cfg *config.Config, includeDirs []string, out, errs io.Writer) *translationUnit {
	tu := &translationUnit{
		files:  fileman.New(),
		srcs:   source.NewManager(),
		idents: ident.NewTable(),
		out:    out,
		errs:   errs,
	}
	tu.engine = diag.NewEngine(cfg.Diags, tu)
	tu.pp = pp.New(tu.files, tu.srcs, tu.idents, tu.engine, cfg.Lang, includeDirs)
	return tu
}

// run lexes the main file id through the preprocessor, printing each token.
func (tu *translationUnit) run(fid source.FileID, printFlags bool) {
	tu.pp.EnterMainSourceFile(fid)

	var tok lexer.Token
	for {
		tu.pp.Lex(&tok)
		tu.printToken(&tok, printFlags)
		if tok.Is(token.EOF) {
			return
		}
	}
}

// printToken writes one token as kind 'spelling', with flags if requested.
func (tu *translationUnit) printToken(tok *lexer.Token, printFlags bool) {
	spelling := ""
	if buf := tu.srcs.Buffer(tok.File); buf != nil {
		spelling = lexer.Spelling(*tok, buf, tu.pp.LangOptions())
	}
	fmt.Fprintf(tu.out, "%s '%s'", tok.Kind, spelling)
	if printFlags {
		if tok.IsAtStartOfLine() {
			fmt.Fprint(tu.out, " [StartOfLine]")
		}
		if tok.HasLeadingSpace() {
			fmt.Fprint(tu.out, " [LeadingSpace]")
		}
		if tok.NeedsClean() {
			fmt.Fprint(tu.out, " [NeedsCleaning]")
		}
	}
	fmt.Fprintln(tu.out)
}

// lexFile runs one file as its own translation unit and returns the
// buffered output along with the error count.
func lexFile(cfg *config.Config, includeDirs []string, path string, printFlags bool) (string, string, int, error) {
	var out, errs bytes.Buffer
	tu := newTranslationUnit(cfg, includeDirs, &out, &errs)

	entry := tu.files.GetFile(path)
	if entry == nil {
		return "", "", 0, fmt.Errorf("%s: no such file", path)
	}
	fid := tu.srcs.CreateFileID(entry, source.Location(0))
	if fid == 0 {
		return "", "", 0, fmt.Errorf("%s: could not read file", path)
	}

	tu.run(fid, printFlags)
	return out.String(), errs.String(), tu.engine.ErrorCount(), nil
}

// expandPatterns turns CLI arguments into file paths. Arguments containing
// glob metacharacters are expanded with doublestar; plain paths pass
// through.
func expandPatterns(args []string, fallback []string) ([]string, error) {
	patterns := args
	if len(patterns) == 0 {
		patterns = fallback
	}
	var paths []string
	seen := make(map[string]bool)
	for _, pat := range patterns {
		matches, err := doublestar.FilepathGlob(pat)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pat, err)
		}
		if matches == nil {
			// Not a pattern match; keep the literal path so the
			// missing-file error names it.
			matches = []string{pat}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func dumpCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	includeDirs := c.StringSlice("include-dir")
	printFlags := c.Bool("flags")

	if c.Bool("stdin") {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		tu := newTranslationUnit(cfg, includeDirs, os.Stdout, os.Stderr)
		fid := tu.srcs.CreateMemBufferFileID("<stdin>", data)
		tu.run(fid, printFlags)
		return nil
	}

	paths, err := expandPatterns(c.Args().Slice(), cfg.Include)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input files")
	}

	if c.Bool("watch") {
		return watchAndDump(cfg, includeDirs, paths, printFlags)
	}

	return dumpAll(cfg, includeDirs, paths, printFlags)
}

// dumpAll lexes each path as an independent translation unit. Units run
// concurrently; output is buffered per unit and printed in input order.
func dumpAll(cfg *config.Config, includeDirs []string, paths []string, printFlags bool) error {
	type result struct {
		out, errs string
		numErrors int
	}
	results := make([]result, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			debug.Printf("lexing %s", path)
			out, errs, numErrors, err := lexFile(cfg, includeDirs, path, printFlags)
			if err != nil {
				return err
			}
			results[i] = result{out: out, errs: errs, numErrors: numErrors}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	totalErrors := 0
	for i, path := range paths {
		if len(paths) > 1 {
			fmt.Printf("== %s\n", path)
		}
		os.Stdout.WriteString(results[i].out)
		os.Stderr.WriteString(results[i].errs)
		totalErrors += results[i].numErrors
	}
	if totalErrors > 0 {
		return fmt.Errorf("%d errors", totalErrors)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	includeDirs := c.StringSlice("include-dir")

	paths, err := expandPatterns(c.Args().Slice(), cfg.Include)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input files")
	}

	for _, path := range paths {
		tu := newTranslationUnit(cfg, includeDirs, io.Discard, os.Stderr)
		entry := tu.files.GetFile(path)
		if entry == nil {
			return fmt.Errorf("%s: no such file", path)
		}
		fid := tu.srcs.CreateFileID(entry, source.Location(0))
		if fid == 0 {
			return fmt.Errorf("%s: could not read file", path)
		}
		var tok lexer.Token
		tu.pp.EnterMainSourceFile(fid)
		numTokens := 0
		for {
			tu.pp.Lex(&tok)
			if tok.Is(token.EOF) {
				break
			}
			numTokens++
		}

		fm, sm, it := tu.files.Stats(), tu.srcs.Stats(), tu.idents.Stats()
		fmt.Printf("== %s\n", path)
		fmt.Printf("%d tokens\n", numTokens)
		fmt.Printf("*** File Manager Stats:\n")
		fmt.Printf("%d files found, %d dirs found\n", fm.UniqueFiles, fm.UniqueDirs)
		fmt.Printf("%d dir lookups, %d dir cache misses\n", fm.DirLookups, fm.DirCacheMisses)
		fmt.Printf("%d file lookups, %d file cache misses\n", fm.FileLookups, fm.FileCacheMisses)
		fmt.Printf("*** Source Manager Stats:\n")
		fmt.Printf("%d files mapped, %d mem buffers mapped, %d file ids allocated\n",
			sm.FilesMapped, sm.MemBuffers, sm.FileIDsAllocated)
		fmt.Printf("%d bytes of files mapped, %d files with line tables\n",
			sm.BytesMapped, sm.LineTablesBuilt)
		fmt.Printf("*** Identifier Table Stats:\n")
		fmt.Printf("%d identifiers, %d buckets (%d empty), %.2f probes per hit\n",
			it.NumIdentifiers, it.NumBuckets, it.EmptyBuckets, it.AvgProbesPerHit)
	}
	return nil
}
