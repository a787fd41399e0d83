/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package verilogperl preprocesses Verilog source: `define macro
// expansion with arguments and defaults, `ifdef conditionals,
// `include resolution, and `line directive emission, streamed out a
// line at a time.
package verilogperl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pp "github.com/berkakinci/verilog-perl/internal/preprocessor"
)

// KeepCmt re-exports the comment policy of the core.
type KeepCmt = pp.KeepCmt

const (
	KeepCmtOff  = pp.KeepCmtOff
	KeepCmtKeep = pp.KeepCmtKeep
	KeepCmtSub  = pp.KeepCmtSub
	KeepCmtExp  = pp.KeepCmtExp
)

// Diagnostic is one reported problem with its source position.
type Diagnostic struct {
	FileLine string
	Msg      string
}

func (d Diagnostic) String() string { return d.FileLine + ": " + d.Msg }

type macroDef struct {
	value  string
	params string
}

// Preprocessor ties the macro table and include resolution to the
// directive engine. The zero value is not usable; call New.
type Preprocessor struct {
	// IncludeDirs is the `include search path, tried after the
	// directory of the including file.
	IncludeDirs []string
	// KeepComments selects comment handling; KeepCmtSub routes
	// comments to CommentFn instead of the output.
	KeepComments KeepCmt
	// KeepWhitespace false drops whitespace-only output lines.
	KeepWhitespace bool
	// Pedantic enables diagnostics for questionable but legal input,
	// such as `undef of a name never defined.
	Pedantic bool
	// LineDirectives enables `line markers at include boundaries and
	// after suppressed regions.
	LineDirectives bool

	// CommentFn receives comments under KeepCmtSub.
	CommentFn func(text string)
	// ErrorFn receives each diagnostic as it happens; diagnostics
	// accumulate in Diagnostics() regardless.
	ErrorFn func(d Diagnostic)

	defines map[string]macroDef
	core    *pp.Preprocessor
	diags   []Diagnostic
}

// New returns a preprocessor with Verilog-typical defaults: comments
// and whitespace kept, `line directives off.
func New() *Preprocessor {
	vp := &Preprocessor{
		KeepComments:   KeepCmtKeep,
		KeepWhitespace: true,
		defines:        make(map[string]macroDef),
	}
	vp.core = pp.NewPreprocessor(&hostHooks{vp})
	return vp
}

// Open starts preprocessing the given file.
func (vp *Preprocessor) Open(filename string) error {
	return vp.core.OpenFile(filename)
}

// OpenString starts preprocessing in-memory text under the given name.
func (vp *Preprocessor) OpenString(filename, text string) {
	vp.core.OpenString(filename, text)
}

// GetLine returns the next preprocessed line, final newline included.
// After the input is exhausted Eof reports true.
func (vp *Preprocessor) GetLine() string { return vp.core.Getline(true, 0) }

// GetAll returns preprocessed text in chunks of at least the given
// size; zero drains the remaining input.
func (vp *Preprocessor) GetAll(approxChunk int) string {
	return vp.core.Getline(false, approxChunk)
}

// Eof reports whether all input has been consumed.
func (vp *Preprocessor) Eof() bool { return vp.core.Eof() }

// FileLine reports the current source position.
func (vp *Preprocessor) FileLine() *pp.FileLine { return vp.core.FileLine() }

// InsertUnreadback queues text ahead of the next output token.
func (vp *Preprocessor) InsertUnreadback(text string) {
	vp.core.InsertUnreadback(text)
}

// Debug sets the trace verbosity of the core.
func (vp *Preprocessor) Debug(level int) { vp.core.Debug(level) }

// Diagnostics returns everything reported so far.
func (vp *Preprocessor) Diagnostics() []Diagnostic { return vp.diags }

// Define installs a macro, as from a -D flag or a `define directive.
// params is "" for a plain macro or the parenthesized formal list.
// Redefining a name with a different value is reported; the new
// definition wins either way.
func (vp *Preprocessor) Define(name, value, params string) {
	if old, ok := vp.defines[name]; ok && (old.value != value || old.params != params) {
		vp.report(vp.flString(), fmt.Sprintf("Redefining existing define: %s, with different value: %s", name, value))
	}
	vp.defines[name] = macroDef{value: value, params: params}
}

// Undef removes one macro; Undefineall removes every macro.
func (vp *Preprocessor) Undef(name string) { delete(vp.defines, name) }

func (vp *Preprocessor) Undefineall() { vp.defines = make(map[string]macroDef) }

// DefExists reports whether name is currently defined.
func (vp *Preprocessor) DefExists(name string) bool {
	_, ok := vp.defines[name]
	return ok
}

// DefValue returns the body of a defined macro, "" otherwise.
func (vp *Preprocessor) DefValue(name string) string {
	return vp.defines[name].value
}

// DefParams reports "" for an undefined name, "0" for a macro without
// formals, and the parenthesized formal list otherwise.
func (vp *Preprocessor) DefParams(name string) string {
	d, ok := vp.defines[name]
	if !ok {
		return ""
	}
	if d.params == "" {
		return "0"
	}
	return d.params
}

// ProcessFile preprocesses one file and returns the whole output plus
// the diagnostics raised while producing it.
func (vp *Preprocessor) ProcessFile(filename string) (string, []Diagnostic, error) {
	if err := vp.Open(filename); err != nil {
		return "", vp.diags, err
	}
	return vp.drain(), vp.diags, nil
}

// Process preprocesses in-memory text under the given name.
func (vp *Preprocessor) Process(filename, text string) (string, []Diagnostic) {
	vp.OpenString(filename, text)
	return vp.drain(), vp.diags
}

func (vp *Preprocessor) drain() string {
	var sb strings.Builder
	for !vp.Eof() {
		sb.WriteString(vp.GetLine())
	}
	return sb.String()
}

func (vp *Preprocessor) flString() string {
	if fl := vp.core.FileLine(); fl != nil {
		return fl.String()
	}
	return ""
}

func (vp *Preprocessor) report(fileLine, msg string) {
	d := Diagnostic{FileLine: fileLine, Msg: msg}
	vp.diags = append(vp.diags, d)
	if vp.ErrorFn != nil {
		vp.ErrorFn(d)
	}
}

// resolveAsFile finds filename relative to the including file's
// directory first, then along IncludeDirs.
func (vp *Preprocessor) resolveAsFile(fromDir, filename string) (string, bool) {
	if filepath.IsAbs(filename) {
		if fileExists(filename) {
			return filename, true
		}
		return "", false
	}
	for _, dir := range append([]string{fromDir}, vp.IncludeDirs...) {
		candidate := filepath.Join(dir, filename)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

// ParseDefine splits a -D style NAME=VALUE argument; a bare NAME
// defines an empty value.
func ParseDefine(arg string) (name, value string) {
	if idx := strings.IndexByte(arg, '='); idx >= 0 {
		return arg[:idx], arg[idx+1:]
	}
	return arg, ""
}

// hostHooks adapts the Preprocessor to the callback surface of the
// core without colliding with its exported option fields.
type hostHooks struct {
	vp *Preprocessor
}

func (h *hostHooks) DefExists(name string) bool { return h.vp.DefExists(name) }

func (h *hostHooks) DefParams(name string) string { return h.vp.DefParams(name) }

func (h *hostHooks) DefValue(name string) string { return h.vp.DefValue(name) }

func (h *hostHooks) Define(fl *pp.FileLine, name, value, params string) {
	h.vp.Define(name, value, params)
}

func (h *hostHooks) Undef(name string) { h.vp.Undef(name) }

func (h *hostHooks) Undefineall() { h.vp.Undefineall() }

func (h *hostHooks) DefSubstitute(out string) string { return out }

func (h *hostHooks) Include(fl *pp.FileLine, filename string) {
	vp := h.vp
	path, ok := vp.resolveAsFile(filepath.Dir(fl.Filename()), filename)
	if !ok {
		vp.report(fl.String(), "Cannot find include file: "+filename)
		return
	}
	if err := vp.core.OpenFile(path); err != nil {
		vp.report(fl.String(), "Cannot open include file: "+err.Error())
	}
}

func (h *hostHooks) Comment(text string) {
	if h.vp.CommentFn != nil {
		h.vp.CommentFn(text)
	}
}

func (h *hostHooks) Error(fl *pp.FileLine, msg string) {
	pos := ""
	if fl != nil {
		pos = fl.String()
	}
	h.vp.report(pos, msg)
}

func (h *hostHooks) KeepComments() pp.KeepCmt { return h.vp.KeepComments }
func (h *hostHooks) KeepWhitespace() bool     { return h.vp.KeepWhitespace }
func (h *hostHooks) Pedantic() bool           { return h.vp.Pedantic }
func (h *hostHooks) LineDirectives() bool     { return h.vp.LineDirectives }
