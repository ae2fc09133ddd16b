// Package diag classifies and dispatches the diagnostics produced while
// lexing and preprocessing. Each diagnostic id carries a class; the engine
// maps the class to a level based on the configured options and forwards the
// message to a client sink.
package diag

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/clex/internal/source"
)

// ID names one diagnostic in the static registry below.
type ID uint16

const (
	// Warnings.
	WarnNullInFile ID = iota
	WarnNullInString
	WarnNullInChar
	WarnNestedBlockComment
	WarnTrigraphConverted
	WarnTrigraphIgnored
	WarnTrigraphIgnoredBlockComment
	WarnTrigraphEndsBlockComment
	WarnBackslashNewlineSpace
	WarnEscapedNewlineBlockCommentEnd
	WarnMinMaxDeprecated
	WarnDirectiveWarning

	// Extensions.
	ExtBCPLComment
	ExtMultiLineBCPLComment
	ExtDollarInIdentifier
	ExtNoNewlineAtEOF
	ExtHexFloat

	// Errors.
	ErrUnterminatedString
	ErrUnterminatedChar
	ErrUnterminatedBlockComment
	ErrEmptyCharacter
	ErrStrayCharacter
	ErrUnterminatedConditional
	ErrExpectedFilename
	ErrInvalidDirective
	ErrMacroNameMissing
	ErrMacroNameNotIdentifier
	ErrDirectiveError
	ErrFileNotFound

	// Fatal.
	FatalTooManyErrors

	NumDiagnostics
)

// Level is the severity a diagnostic is reported at after classification.
type Level int

const (
	Ignored Level = iota
	Note
	Warning
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Ignored:
		return "ignored"
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal error"
	}
	return "unknown"
}

// Class is the static classification of a diagnostic id. Extension
// diagnostics map to Ignored, Warning or Error depending on Options.
type Class int

const (
	ClassNote Class = iota
	ClassWarning
	ClassExtension
	ClassError
	ClassFatal
)

type info struct {
	Class Class
	// Text is an english message; a single %s slot receives the extra
	// string supplied at report time.
	Text string
}

var registry = [NumDiagnostics]info{
	WarnNullInFile:                    {ClassWarning, "null character ignored"},
	WarnNullInString:                  {ClassWarning, "null character in string literal"},
	WarnNullInChar:                    {ClassWarning, "null character in character constant"},
	WarnNestedBlockComment:            {ClassWarning, "'/*' within block comment"},
	WarnTrigraphConverted:             {ClassWarning, "trigraph converted to '%s' character"},
	WarnTrigraphIgnored:               {ClassWarning, "trigraph ignored"},
	WarnTrigraphIgnoredBlockComment:   {ClassWarning, "ignored trigraph would end block comment"},
	WarnTrigraphEndsBlockComment:      {ClassWarning, "trigraph ends block comment"},
	WarnBackslashNewlineSpace:         {ClassWarning, "backslash and newline separated by space"},
	WarnEscapedNewlineBlockCommentEnd: {ClassWarning, "escaped newline between */ characters at block comment end"},
	WarnMinMaxDeprecated:              {ClassWarning, "min/max operators are deprecated"},
	WarnDirectiveWarning:              {ClassWarning, "%s"},

	ExtBCPLComment:          {ClassExtension, "// comments are not allowed in this language"},
	ExtMultiLineBCPLComment: {ClassExtension, "multi-line // comment"},
	ExtDollarInIdentifier:   {ClassExtension, "'$' in identifier"},
	ExtNoNewlineAtEOF:       {ClassExtension, "no newline at end of file"},
	ExtHexFloat:             {ClassExtension, "hexadecimal floating constants are an extension"},

	ErrUnterminatedString:       {ClassError, "missing terminating '\"' character"},
	ErrUnterminatedChar:         {ClassError, "missing terminating ' character"},
	ErrUnterminatedBlockComment: {ClassError, "unterminated /* comment"},
	ErrEmptyCharacter:           {ClassError, "empty character constant"},
	ErrStrayCharacter:           {ClassError, "stray character in program"},
	ErrUnterminatedConditional:  {ClassError, "unterminated conditional directive"},
	ErrExpectedFilename:         {ClassError, "expected \"FILENAME\" or <FILENAME>"},
	ErrInvalidDirective:         {ClassError, "invalid preprocessing directive '%s'"},
	ErrMacroNameMissing:         {ClassError, "macro name missing"},
	ErrMacroNameNotIdentifier:   {ClassError, "macro names must be identifiers"},
	ErrDirectiveError:           {ClassError, "%s"},
	ErrFileNotFound:             {ClassError, "'%s' file not found"},

	FatalTooManyErrors: {ClassFatal, "too many errors emitted, stopping now"},
}

// DiagClass returns the static class of the diagnostic id.
func DiagClass(id ID) Class {
	return registry[id].Class
}

// Description returns the message template for the diagnostic id.
func Description(id ID) string {
	return registry[id].Text
}

// Format renders the diagnostic message with the extra string substituted
// into its slot.
func Format(id ID, extra string) string {
	desc := Description(id)
	if strings.Contains(desc, "%s") {
		return fmt.Sprintf(desc, extra)
	}
	return desc
}

// Options control how diagnostic classes are mapped onto levels.
type Options struct {
	WarnOnExtensions  bool `toml:"warn_on_extensions"`
	ErrorOnExtensions bool `toml:"error_on_extensions"`
	WarningsAsErrors  bool `toml:"warnings_as_errors"`
}

// Client receives classified diagnostics. Implementations must not call back
// into the engine.
type Client interface {
	HandleDiagnostic(level Level, loc source.Location, id ID, extra string)
}

// Engine classifies diagnostics and dispatches them to a client.
type Engine struct {
	opts   Options
	client Client

	numErrors   int
	numWarnings int
}

// NewEngine returns an engine dispatching to client under opts.
func NewEngine(opts Options, client Client) *Engine {
	return &Engine{opts: opts, client: client}
}

// LevelFor maps a diagnostic id onto the level it would be reported at.
func (e *Engine) LevelFor(id ID) Level {
	class := DiagClass(id)

	if class == ClassExtension {
		switch {
		case e.opts.ErrorOnExtensions:
			class = ClassError
		case e.opts.WarnOnExtensions:
			class = ClassWarning
		default:
			return Ignored
		}
	}

	if class == ClassWarning && e.opts.WarningsAsErrors {
		class = ClassError
	}

	switch class {
	case ClassNote:
		return Note
	case ClassWarning:
		return Warning
	case ClassError:
		return Error
	default:
		return Fatal
	}
}

// Report classifies the diagnostic and hands it to the client. Diagnostics
// whose level maps to Ignored are dropped without dispatch.
func (e *Engine) Report(loc source.Location, id ID, extra string) {
	level := e.LevelFor(id)
	if level == Ignored {
		return
	}
	switch level {
	case Warning:
		e.numWarnings++
	case Error, Fatal:
		e.numErrors++
	}
	e.client.HandleDiagnostic(level, loc, id, extra)
}

// ErrorCount returns the number of error-or-worse diagnostics reported.
func (e *Engine) ErrorCount() int { return e.numErrors }

// WarningCount returns the number of warnings reported.
func (e *Engine) WarningCount() int { return e.numWarnings }
