// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package etc

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/smartagent/agent/pkg/expr"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/unit"
	"github.com/smartagent/agent/pkg/value"
)

// LoadError reports the line a spec-package parse failure occurred on.
type LoadError struct {
	Line int
	Msg  string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("etc: package line %d: %s", e.Line, e.Msg)
}

// LoadPackage parses a spec-package text document into a Package. The
// grammar is a small brace-delimited block language:
//
//	table <id> {
//	  query <protocol>.<data-table-id>
//	  singleton
//	  item_id <expr>
//	  item_name <expr>
//	  field <id> {
//	    input_type <type>
//	    display_unit <unit>
//	    expr <expr>
//	    reference <expr>
//	    references <name> <expr>
//	    threshold <label> warning <expr> critical <expr>
//	    elastic_field <name>
//	    elastic_data
//	  }
//	}
//	check <id> { tables <id> <id>... }
//	mp <id> { tag <tag>; tables <id>...; checks <id>... }
//
// Discovering package files on disk is an external collaborator;
// this function only parses an already-opened document.
func LoadPackage(r io.Reader) (*Package, error) {
	lx := newLexer(r)
	pkg := NewPackage()
	for {
		line, lineNo, ok := lx.next()
		if !ok {
			return pkg, nil
		}
		fields := splitKeywordLine(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "table":
			ts, err := parseTable(lx, fields)
			if err != nil {
				return nil, err
			}
			pkg.Tables[ts.ID] = ts
		case "check":
			cs, err := parseCheck(lx, fields)
			if err != nil {
				return nil, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			pkg.Checks[cs.ID] = cs
		case "mp":
			mp, err := parseMP(lx, fields)
			if err != nil {
				return nil, err
			}
			pkg.MPs[mp.ID] = mp
		default:
			return nil, &LoadError{Line: lineNo, Msg: fmt.Sprintf("unexpected top-level keyword %q", fields[0])}
		}
	}
}

// lexer strips comments ('#' to end of line) and blank lines, tracking line
// numbers for error messages.
type lexer struct {
	scanner *bufio.Scanner
	lineNo  int
}

func newLexer(r io.Reader) *lexer {
	return &lexer{scanner: bufio.NewScanner(r)}
}

func (l *lexer) next() (string, int, bool) {
	for l.scanner.Scan() {
		l.lineNo++
		line := l.scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return line, l.lineNo, true
	}
	return "", l.lineNo, false
}

// splitKeywordLine tokenizes a line into its leading keyword/identifier
// fields, stopping once a line is just "{" or "}" (handled by callers) --
// expression text is recovered separately via exprTail since it may contain
// spaces/parens the tokenizer must not split on.
func splitKeywordLine(line string) []string {
	return strings.Fields(line)
}

// exprTail returns everything on the line after the first n whitespace-
// separated tokens, the raw expression source.
func exprTail(line string, n int) string {
	fields := strings.SplitN(strings.TrimSpace(line), " ", n+1)
	if len(fields) <= n {
		return ""
	}
	return strings.TrimSpace(fields[n])
}

func parseTable(lx *lexer, header []string) (TableSpec, error) {
	if len(header) < 2 {
		return TableSpec{}, &LoadError{Line: lx.lineNo, Msg: "table requires an id"}
	}
	ts := TableSpec{ID: header[1]}
	if !strings.HasSuffix(strings.Join(header, " "), "{") {
		return TableSpec{}, &LoadError{Line: lx.lineNo, Msg: "table header must end with '{'"}
	}
	for {
		line, lineNo, ok := lx.next()
		if !ok {
			return TableSpec{}, &LoadError{Line: lineNo, Msg: "unterminated table block"}
		}
		if line == "}" {
			return ts, nil
		}
		fields := splitKeywordLine(line)
		switch fields[0] {
		case "query":
			ref, err := parseQueryRef(fields)
			if err != nil {
				return TableSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			ts.Query = ref
		case "singleton":
			ts.Singleton = true
		case "item_id":
			e, err := expr.Parse(exprTail(line, 1))
			if err != nil {
				return TableSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			ts.ItemID = e
		case "item_name":
			e, err := expr.Parse(exprTail(line, 1))
			if err != nil {
				return TableSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			ts.ItemName = e
		case "field":
			fs, err := parseField(lx, fields)
			if err != nil {
				return TableSpec{}, err
			}
			ts.Fields = append(ts.Fields, fs)
		default:
			return TableSpec{}, &LoadError{Line: lineNo, Msg: fmt.Sprintf("unexpected keyword %q in table block", fields[0])}
		}
	}
}

func parseQueryRef(fields []string) (QueryRef, error) {
	if len(fields) < 2 {
		return QueryRef{}, fmt.Errorf("query requires protocol.table")
	}
	parts := strings.SplitN(fields[1], ".", 2)
	if len(parts) != 2 {
		return QueryRef{}, fmt.Errorf("query ref %q must be protocol.table", fields[1])
	}
	return QueryRef{Protocol: plugin.Protocol(parts[0]), DataTable: plugin.DataTableId(parts[1])}, nil
}

func parseField(lx *lexer, header []string) (FieldSpec, error) {
	if len(header) < 2 {
		return FieldSpec{}, &LoadError{Line: lx.lineNo, Msg: "field requires an id"}
	}
	fs := FieldSpec{ID: header[1], References: make(map[string]expr.Expr)}
	for {
		line, lineNo, ok := lx.next()
		if !ok {
			return FieldSpec{}, &LoadError{Line: lineNo, Msg: "unterminated field block"}
		}
		if line == "}" {
			return fs, nil
		}
		fields := splitKeywordLine(line)
		switch fields[0] {
		case "source":
			if len(fields) < 2 {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: "source requires a protocol field id"}
			}
			fs.Source = plugin.DataFieldId(fields[1])
		case "input_type":
			t, err := parseType(exprTail(line, 1))
			if err != nil {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			fs.InputType = t
		case "display_unit":
			u, err := unit.Parse(exprTail(line, 1))
			if err != nil {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			fs.DisplayUnit = u
		case "expr":
			e, err := expr.Parse(exprTail(line, 1))
			if err != nil {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			fs.Expr = e
		case "reference":
			e, err := expr.Parse(exprTail(line, 1))
			if err != nil {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			fs.Reference = e
		case "references":
			if len(fields) < 2 {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: "references requires a name"}
			}
			e, err := expr.Parse(exprTail(line, 2))
			if err != nil {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			fs.References[fields[1]] = e
		case "threshold":
			th, err := parseThreshold(line, fields)
			if err != nil {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: err.Error()}
			}
			fs.Thresholds = append(fs.Thresholds, th)
			if fs.Threshold == nil {
				fs.Threshold = &fs.Thresholds[0]
			}
		case "elastic_field":
			if len(fields) < 2 {
				return FieldSpec{}, &LoadError{Line: lineNo, Msg: "elastic_field requires a name"}
			}
			fs.ElasticField = fields[1]
		case "elastic_data":
			fs.ElasticData = true
		default:
			return FieldSpec{}, &LoadError{Line: lineNo, Msg: fmt.Sprintf("unexpected keyword %q in field block", fields[0])}
		}
	}
}

// parseThreshold parses `threshold <label> warning <expr> critical <expr>`.
func parseThreshold(line string, fields []string) (Threshold, error) {
	if len(fields) < 4 || fields[2] != "warning" {
		return Threshold{}, fmt.Errorf("threshold must be '<label> warning <expr> critical <expr>'")
	}
	rest := exprTail(line, 3)
	idx := strings.Index(rest, " critical ")
	if idx < 0 {
		return Threshold{}, fmt.Errorf("threshold missing 'critical' clause")
	}
	warnSrc := strings.TrimSpace(rest[:idx])
	critSrc := strings.TrimSpace(rest[idx+len(" critical "):])
	warnExpr, err := expr.Parse(warnSrc)
	if err != nil {
		return Threshold{}, err
	}
	critExpr, err := expr.Parse(critSrc)
	if err != nil {
		return Threshold{}, err
	}
	return Threshold{Label: fields[1], Warning: warnExpr, Critical: critExpr}, nil
}

func parseCheck(lx *lexer, header []string) (CheckSpec, error) {
	if len(header) < 2 {
		return CheckSpec{}, fmt.Errorf("check requires an id")
	}
	cs := CheckSpec{ID: header[1]}
	// Single-line form: check <id> { tables a b c }
	if idx := indexOf(header, "tables"); idx >= 0 {
		cs.Tables = append(cs.Tables, header[idx+1:]...)
		cs.Tables = trimBraces(cs.Tables)
		return cs, nil
	}
	if indexOf(header, "{") < 0 {
		return cs, nil
	}
	for {
		line, lineNo, ok := lx.next()
		if !ok {
			return CheckSpec{}, &LoadError{Line: lineNo, Msg: "unterminated check block"}
		}
		if line == "}" {
			return cs, nil
		}
		fields := splitKeywordLine(line)
		switch fields[0] {
		case "tables":
			cs.Tables = append(cs.Tables, fields[1:]...)
		default:
			return CheckSpec{}, &LoadError{Line: lineNo, Msg: fmt.Sprintf("unexpected keyword %q in check block", fields[0])}
		}
	}
}

func parseMP(lx *lexer, header []string) (MPSpec, error) {
	if len(header) < 2 {
		return MPSpec{}, &LoadError{Line: lx.lineNo, Msg: "mp requires an id"}
	}
	mp := MPSpec{ID: header[1]}
	for {
		line, lineNo, ok := lx.next()
		if !ok {
			return MPSpec{}, &LoadError{Line: lineNo, Msg: "unterminated mp block"}
		}
		if line == "}" {
			return mp, nil
		}
		fields := splitKeywordLine(line)
		switch fields[0] {
		case "tag":
			if len(fields) < 2 {
				return MPSpec{}, &LoadError{Line: lineNo, Msg: "tag requires a value"}
			}
			mp.Tag = fields[1]
		case "tables":
			mp.Tables = append(mp.Tables, fields[1:]...)
		case "checks":
			mp.Checks = append(mp.Checks, fields[1:]...)
		default:
			return MPSpec{}, &LoadError{Line: lineNo, Msg: fmt.Sprintf("unexpected keyword %q in mp block", fields[0])}
		}
	}
}

func indexOf(fields []string, target string) int {
	for i, f := range fields {
		if f == target {
			return i
		}
	}
	return -1
}

func trimBraces(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSuffix(f, "}")
		f = strings.TrimPrefix(f, "{")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseType parses the Type grammar: primitive names, and
// Quantity(Dimension)/Enum(a,b,c)/Option(T)/List(T)/Set(T)/Map(K,V)/
// Result(Ok,Err)/Tuple(T,...) composite forms.
func parseType(s string) (value.Type, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "BinaryString":
		return value.BinaryString(), nil
	case "UnicodeString":
		return value.UnicodeString(), nil
	case "Integer":
		return value.Integer(), nil
	case "Float":
		return value.Float(), nil
	case "Boolean":
		return value.Boolean(), nil
	case "Time":
		return value.Time(), nil
	case "Age":
		return value.Age(), nil
	case "MacAddress":
		return value.MacAddress(), nil
	case "Ipv4":
		return value.Ipv4(), nil
	case "Ipv6":
		return value.Ipv6(), nil
	case "Json":
		return value.JSON(), nil
	}
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return value.Type{}, fmt.Errorf("etc: unrecognized type %q", s)
	}
	head := s[:open]
	inner := s[open+1 : len(s)-1]
	args := splitTopLevelCommas(inner)
	switch head {
	case "Quantity":
		dim, ok := unit.ParseDimension(strings.TrimSpace(inner))
		if !ok {
			return value.Type{}, fmt.Errorf("etc: unknown dimension %q", inner)
		}
		return value.QuantityType(dim), nil
	case "Enum":
		labels := make([]string, len(args))
		for i, a := range args {
			labels[i] = strings.TrimSpace(a)
		}
		return value.EnumType(value.NewChoices(labels...)), nil
	case "Option":
		elem, err := parseType(args[0])
		if err != nil {
			return value.Type{}, err
		}
		return value.OptionType(elem), nil
	case "List":
		elem, err := parseType(args[0])
		if err != nil {
			return value.Type{}, err
		}
		return value.ListType(elem), nil
	case "Set":
		elem, err := parseType(args[0])
		if err != nil {
			return value.Type{}, err
		}
		return value.SetType(elem), nil
	case "Map":
		if len(args) != 2 {
			return value.Type{}, fmt.Errorf("etc: Map requires key,value")
		}
		k, err := parseType(args[0])
		if err != nil {
			return value.Type{}, err
		}
		v, err := parseType(args[1])
		if err != nil {
			return value.Type{}, err
		}
		return value.MapType(k, v), nil
	case "Result":
		if len(args) != 2 {
			return value.Type{}, fmt.Errorf("etc: Result requires ok,err")
		}
		ok, err := parseType(args[0])
		if err != nil {
			return value.Type{}, err
		}
		errT, err := parseType(args[1])
		if err != nil {
			return value.Type{}, err
		}
		return value.ResultType(ok, errT), nil
	case "Tuple":
		members := make([]value.Type, len(args))
		for i, a := range args {
			t, err := parseType(a)
			if err != nil {
				return value.Type{}, err
			}
			members[i] = t
		}
		return value.TupleType(members...), nil
	default:
		return value.Type{}, fmt.Errorf("etc: unrecognized composite type %q", head)
	}
}

func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
