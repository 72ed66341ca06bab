// Package diagram validates and normalizes mermaid code returned by the model.
package diagram

import (
	"fmt"
	"regexp"
	"strings"
)

type Kind string

const (
	KindSyntax     Kind = "SYNTAX"
	KindValidation Kind = "VALIDATION"
	KindUnknown    Kind = "UNKNOWN"
)

// ValidTypes lists the mermaid declarations we accept on the first line.
var ValidTypes = []string{"flowchart", "sequenceDiagram", "classDiagram", "stateDiagram", "erDiagram"}

type Error struct {
	Message  string
	Kind     Kind
	Line     int
	Expected string
	Found    string
}

func (e *Error) Error() string {
	return e.Message
}

// Format renders the error with its location details, one per line.
func (e *Error) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&b, "\nLine: %d", e.Line)
	}
	if e.Expected != "" {
		fmt.Fprintf(&b, "\nExpected: %s", e.Expected)
	}
	if e.Found != "" {
		fmt.Fprintf(&b, "\nFound: %s", e.Found)
	}
	return b.String()
}

var (
	fenceOpenRe     = regexp.MustCompile("```(?:mermaid)?\\n?")
	arrowSplitRe    = regexp.MustCompile(`(-\.+-?>|=+>|-+>|---)`)
	nodeIDCleanRe   = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	sequenceLineRe  = regexp.MustCompile(`^(participant|actor|Note|note|loop|alt|opt|par|and|else|end|rect|critical|break|autonumber|activate|deactivate|[^-]+-{1,2}(>>|>|x|\))[+-]?[^-]+:)`)
	erLineRe        = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\s+[{|}]|^[A-Za-z_][A-Za-z0-9_]*\s+--|^}$|^[A-Za-z_][A-Za-z0-9_]*\s+[A-Za-z_]`)
	shapedNodeStart = "[({\">"
)

func expectedTypes() string {
	lower := make([]string, len(ValidTypes))
	for i, t := range ValidTypes {
		lower[i] = strings.ToLower(t)
	}
	return strings.Join(lower, " | ")
}

// Validate checks that the code declares a supported diagram type on its first line.
// "graph" is accepted as the legacy spelling of flowchart.
func Validate(code string) error {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return &Error{Message: "Invalid or empty diagram code", Kind: KindValidation}
	}

	firstLine := strings.TrimSpace(strings.SplitN(trimmed, "\n", 2)[0])
	if strings.HasPrefix(firstLine, "graph") {
		return nil
	}
	for _, t := range ValidTypes {
		if strings.HasPrefix(firstLine, strings.ToLower(t)) {
			return nil
		}
	}
	return &Error{
		Message:  "Invalid diagram type. Must be one of: " + strings.ReplaceAll(expectedTypes(), " | ", ", "),
		Kind:     KindValidation,
		Line:     1,
		Expected: expectedTypes(),
		Found:    firstLine,
	}
}

// Preprocess strips markdown fences, normalizes line endings and flowchart
// headers, and checks sequence and ER diagram lines.
func Preprocess(code string) (string, error) {
	processed := strings.TrimSpace(code)
	if processed == "" {
		return "", &Error{Message: "Invalid or empty diagram code", Kind: KindValidation}
	}

	processed = strings.ReplaceAll(processed, "\r\n", "\n")
	processed = fenceOpenRe.ReplaceAllString(processed, "")
	processed = strings.TrimSpace(processed)
	if processed == "" {
		return "", &Error{Message: "Empty diagram code after preprocessing", Kind: KindValidation}
	}
	if err := Validate(processed); err != nil {
		return "", err
	}

	lines := strings.Split(processed, "\n")
	firstLine := strings.TrimSpace(lines[0])
	// Validate is case-insensitive; mermaid keywords are not.
	header := strings.ToLower(firstLine)
	for _, t := range ValidTypes {
		if strings.HasPrefix(header, strings.ToLower(t)) {
			lines[0] = t + firstLine[len(t):]
			processed = strings.Join(lines, "\n")
			break
		}
	}

	switch {
	case strings.HasPrefix(header, "flowchart") || strings.HasPrefix(header, "graph"):
		direction := "LR"
		upper := strings.ToUpper(firstLine)
		if strings.Contains(upper, " TD") || strings.Contains(upper, " TB") {
			direction = "TD"
		}
		out := make([]string, 0, len(lines))
		out = append(out, "flowchart "+direction)
		for _, line := range lines[1:] {
			out = append(out, rewriteFlowchartLine(line))
		}
		return strings.Join(out, "\n"), nil

	case strings.HasPrefix(header, "sequencediagram"):
		for i, line := range lines[1:] {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !sequenceLineRe.MatchString(trimmed) {
				return "", &Error{
					Message: fmt.Sprintf("Invalid sequence diagram syntax at line %d", i+2),
					Kind:    KindSyntax,
					Line:    i + 2,
					Found:   trimmed,
				}
			}
		}

	case strings.HasPrefix(header, "erdiagram"):
		for i, line := range lines[1:] {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !erLineRe.MatchString(trimmed) {
				return "", &Error{
					Message: fmt.Sprintf("Invalid ER diagram syntax at line %d", i+2),
					Kind:    KindSyntax,
					Line:    i + 2,
					Found:   trimmed,
				}
			}
		}
	}

	return processed, nil
}

// rewriteFlowchartLine turns bare labels into id["label"] nodes and leaves
// shaped nodes (A[..], B(..), "..") and directives untouched.
func rewriteFlowchartLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || isDirective(trimmed) {
		return line
	}

	if !arrowSplitRe.MatchString(trimmed) {
		return "    " + nodeOrEdge(trimmed)
	}

	var parts []string
	last := 0
	for _, loc := range arrowSplitRe.FindAllStringIndex(trimmed, -1) {
		parts = append(parts, nodeOrEdge(strings.TrimSpace(trimmed[last:loc[0]])))
		parts = append(parts, trimmed[loc[0]:loc[1]])
		last = loc[1]
	}
	parts = append(parts, nodeOrEdge(strings.TrimSpace(trimmed[last:])))
	return "    " + strings.Join(parts, " ")
}

func nodeOrEdge(part string) string {
	if part == "" {
		return part
	}
	// Edge labels such as |Valid| B stay as written.
	if strings.HasPrefix(part, "|") {
		return part
	}
	if strings.ContainsAny(part, shapedNodeStart) {
		return part
	}
	id := nodeIDCleanRe.ReplaceAllString(whitespaceRe.ReplaceAllString(part, "_"), "")
	if id == part {
		return part
	}
	return fmt.Sprintf(`%s["%s"]`, id, part)
}

func isDirective(line string) bool {
	for _, prefix := range []string{"style ", "classDef ", "class ", "click ", "linkStyle ", "subgraph", "end", "%%"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
