// Package shellparse extracts the executables a shell command would run.
// It is used to put concrete detail into rejection reasons when a restricted
// action carries an embedded command.
package shellparse

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// shellInterpreters are commands whose string argument is itself a script
// (e.g. "bash -c 'rm -rf /'"). Their inner command is parsed one level deep.
var shellInterpreters = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true,
}

// Executables parses command as bash and returns the distinct executable
// names it would invoke, in order of first appearance. Indirect execution via
// a shell interpreter's -c argument is followed one level. If the parser
// rejects the input, the first whitespace field is returned as a best effort.
func Executables(command string) []string {
	seen := make(map[string]bool)
	var out []string
	collect(command, 0, seen, &out)
	return out
}

func collect(command string, depth int, seen map[string]bool, out *[]string) {
	if depth > 1 || strings.TrimSpace(command) == "" {
		return
	}

	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		if fields := strings.Fields(command); len(fields) > 0 {
			add(fields[0], seen, out)
		}
		return
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		name := wordLiteral(call.Args[0])
		if name == "" {
			return true
		}
		add(name, seen, out)

		// bash -c '...' — follow the inner script.
		if shellInterpreters[name] {
			for i := 1; i < len(call.Args)-1; i++ {
				if wordLiteral(call.Args[i]) == "-c" {
					collect(wordLiteral(call.Args[i+1]), depth+1, seen, out)
					break
				}
			}
		}
		return true
	})
}

func add(name string, seen map[string]bool, out *[]string) {
	// Strip any leading path so "/bin/rm" and "rm" are the same executable.
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" || seen[name] {
		return
	}
	seen[name] = true
	*out = append(*out, name)
}

// wordLiteral flattens a word made only of literal and quoted-literal parts.
// Words with expansions (variables, substitutions) return "" — their value
// is not knowable statically.
func wordLiteral(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return ""
				}
				sb.WriteString(lit.Value)
			}
		default:
			return ""
		}
	}
	return sb.String()
}
