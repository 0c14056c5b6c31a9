package transpile

import (
	"fmt"
	"regexp"
	"strings"
)

// Output is the result of transpiling one entry source into its
// canonical, engine-ready form.
type Output struct {
	Code      string
	SourceMap []byte // v3 JSON, nil if the transpiler produced no map
}

// SyntaxError reports the brace/paren/bracket imbalances found while
// lowering a source file: each unexpected closer, plus the innermost
// opener still unclosed at the end. Multiple diagnostics are joined, matching
// Transpile(Syntax(joined_messages)) in the error taxonomy.
type SyntaxError struct {
	Messages []string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s", strings.Join(e.Messages, "; "))
}

// typeAnnotation matches a TypeScript type annotation on a parameter,
// variable declaration or function return type: `: Type` up to the next
// `,` `)` `=` `;` `{` or end of line. The terminator is captured in group 1
// so the replacement can put it back. It intentionally does not
// understand generics with commas inside (`Map<string, number>`) since
// the plugin surface this lowers is a narrow, script-like subset of
// TypeScript, not arbitrary source.
var typeAnnotation = regexp.MustCompile(`:\s*[A-Za-z_][A-Za-z0-9_<>\[\]., |]*?([,)=;{\n]|$)`)

// interfaceDecl and typeAliasDecl match a standalone `interface Foo { ... }`
// or `type Foo = ...;` declaration, which emits no runtime code.
var interfaceDecl = regexp.MustCompile(`(?ms)^\s*(?:export\s+)?interface\s+\w+[^{]*\{.*?\n\}\s*`)
var typeAliasDecl = regexp.MustCompile(`(?m)^\s*(?:export\s+)?type\s+\w+(<[^>]*>)?\s*=.*?;\s*$`)

// Transpile validates source and lowers it to canonical JavaScript.
// Type-only constructs (interface/type declarations, parameter and
// variable type annotations) are stripped; everything else passes
// through unchanged. filename is used only to label diagnostics.
func Transpile(source, filename string) (Output, error) {
	if err := checkBalance(source, filename); err != nil {
		return Output{}, err
	}

	code := source
	code = interfaceDecl.ReplaceAllString(code, "")
	code = typeAliasDecl.ReplaceAllString(code, "")
	code = typeAnnotation.ReplaceAllString(code, "$1")

	out := Output{Code: code}
	out.SourceMap = buildIdentityMap(filename, source, code)
	return out, nil
}

func checkBalance(source, filename string) error {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	opens := map[rune]bool{'(': true, '[': true, '{': true}
	var stack []rune
	var messages []string

	inString := rune(0)
	for i, r := range source {
		if inString != 0 {
			if r == inString && (i == 0 || source[i-1] != '\\') {
				inString = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			inString = r
		default:
			if opens[r] {
				stack = append(stack, r)
			} else if want, ok := pairs[r]; ok {
				if len(stack) == 0 || stack[len(stack)-1] != want {
					messages = append(messages, fmt.Sprintf("%s: unexpected %q", filename, r))
					continue
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) > 0 {
		messages = append(messages, fmt.Sprintf("%s: unclosed %q", filename, stack[len(stack)-1]))
	}
	if len(messages) > 0 {
		return &SyntaxError{Messages: messages}
	}
	return nil
}

// buildIdentityMap produces a minimal v3 source map whose single segment
// maps generated (1,1) to the entry's own original (1,1). Type stripping
// only removes tokens, it never reorders lines, so a full line-by-line
// map isn't needed for the one property this system relies on: remapping
// the first frame of a thrown error back to the plugin's own file.
func buildIdentityMap(filename, _, _ string) []byte {
	mapping := "AAAA"
	names := "[]"
	sources := fmt.Sprintf("[%q]", filename)
	return []byte(fmt.Sprintf(`{"version":3,"sources":%s,"names":%s,"mappings":%q,"file":%q}`,
		sources, names, mapping, filename))
}
