package docstore

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Translated is a query compiled to SQLite over the documents table.
type Translated struct {
	Where   string // boolean SQL expression; empty means no filter
	OrderBy string // ORDER BY list including the id tie-break
	Top     int    // TOP n from the query text, 0 when absent
	Args    []any  // bind values for Where, in order
}

var (
	selectRe  = regexp.MustCompile(`(?is)^\s*SELECT\s+(?:TOP\s+(\d+)\s+)?\*\s+FROM\s+c\b(.*)$`)
	whereRe   = regexp.MustCompile(`(?is)^\s*WHERE\s+(.+)$`)
	orderByRe = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	orderItem = regexp.MustCompile(`(?i)^\s*c\.([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*(ASC|DESC)?\s*$`)
	pathRe    = regexp.MustCompile(`\bc\.([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)`)
	paramRe   = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)`)
	notNullRe = regexp.MustCompile(`(?i)(!=|<>)\s*null\b`)
	isNullRe  = regexp.MustCompile(`(?i)=\s*null\b`)
	funcRe    = regexp.MustCompile(`(?i)\b(ARRAY_CONTAINS|ARRAY_LENGTH|CONTAINS|STARTSWITH|IS_DEFINED)\s*\(`)
	bareCRe   = regexp.MustCompile(`\bc\b`)
)

const defaultOrder = "json_extract(d.body, '$.createdAt') DESC, d.id ASC"

// Translate compiles a query of the form
//
//	SELECT [TOP n] * FROM c [WHERE <expr>] [ORDER BY c.f [ASC|DESC], ...]
//
// into SQLite over documents aliased as d. Property paths (c.a.b) become
// json_extract calls; @name placeholders are bound from params. Supported
// functions: ARRAY_CONTAINS, ARRAY_LENGTH, CONTAINS, STARTSWITH, IS_DEFINED,
// plus LOWER and UPPER, which SQLite provides natively. Without ORDER BY the
// result is ordered by createdAt descending.
func Translate(text string, params map[string]any) (Translated, error) {
	var out Translated
	if strings.ContainsAny(text, ";") || strings.Contains(text, "--") || strings.Contains(text, "/*") {
		return out, badRequest("statement separators and comments are not allowed")
	}
	m := selectRe.FindStringSubmatch(text)
	if m == nil {
		return out, badRequest("query must have the form SELECT * FROM c ...")
	}
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return out, badRequest("invalid TOP value %q", m[1])
		}
		out.Top = n
	}

	rest := m[2]
	order := ""
	if locs := orderByRe.FindAllStringIndex(rest, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		order = rest[last[1]:]
		rest = rest[:last[0]]
	}

	if strings.TrimSpace(rest) != "" {
		wm := whereRe.FindStringSubmatch(rest)
		if wm == nil {
			return out, badRequest("unexpected clause %q", strings.TrimSpace(rest))
		}
		where, args, err := translateExpr(strings.TrimSpace(wm[1]), params)
		if err != nil {
			return out, err
		}
		out.Where, out.Args = where, args
	}

	if strings.TrimSpace(order) == "" {
		out.OrderBy = defaultOrder
		return out, nil
	}
	parts := strings.Split(order, ",")
	cols := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		om := orderItem.FindStringSubmatch(p)
		if om == nil {
			return out, badRequest("unsupported ORDER BY item %q", strings.TrimSpace(p))
		}
		dir := "ASC"
		if strings.EqualFold(om[2], "DESC") {
			dir = "DESC"
		}
		cols = append(cols, jsonPath(om[1])+" "+dir)
	}
	cols = append(cols, "d.id ASC")
	out.OrderBy = strings.Join(cols, ", ")
	return out, nil
}

func jsonPath(path string) string {
	return "json_extract(d.body, '$." + path + "')"
}

func translateExpr(expr string, params map[string]any) (string, []any, error) {
	expr, err := rewriteFuncs(expr)
	if err != nil {
		return "", nil, err
	}

	var (
		b    strings.Builder
		args []any
	)
	for i, seg := range splitQuoted(expr) {
		if i%2 == 1 { // quoted literal, copied verbatim
			b.WriteString(seg)
			continue
		}
		if bareCRe.MatchString(pathRe.ReplaceAllString(seg, "")) {
			return "", nil, badRequest("bare document references are not supported")
		}
		if strings.Contains(seg, "?") {
			return "", nil, badRequest("positional placeholders are not supported; use @name")
		}
		seg = notNullRe.ReplaceAllString(seg, "IS NOT NULL")
		seg = isNullRe.ReplaceAllString(seg, "IS NULL")
		seg = pathRe.ReplaceAllStringFunc(seg, func(s string) string {
			return jsonPath(s[2:])
		})

		var perr error
		seg = paramRe.ReplaceAllStringFunc(seg, func(s string) string {
			name := s[1:]
			v, ok := params[name]
			if !ok {
				perr = badRequest("missing value for parameter @%s", name)
				return s
			}
			sv, err := sqlValue(v)
			if err != nil {
				perr = badRequest("parameter @%s: %v", name, err)
				return s
			}
			args = append(args, sv)
			return "?"
		})
		if perr != nil {
			return "", nil, perr
		}
		b.WriteString(seg)
	}
	return "(" + b.String() + ")", args, nil
}

// rewriteFuncs replaces the Cosmos functions without a direct SQLite
// equivalent. Arguments are left untranslated; later passes rewrite the paths
// and parameters inside them.
func rewriteFuncs(expr string) (string, error) {
	for {
		loc := funcRe.FindStringSubmatchIndex(expr)
		if loc == nil {
			return expr, nil
		}
		name := strings.ToUpper(expr[loc[2]:loc[3]])
		open := loc[1] - 1
		closeIdx, err := matchParen(expr, open)
		if err != nil {
			return "", err
		}
		args := splitArgs(expr[open+1 : closeIdx])

		var repl string
		switch name {
		case "ARRAY_CONTAINS":
			if len(args) != 2 {
				return "", badRequest("ARRAY_CONTAINS expects 2 arguments")
			}
			p, ok := propertyPath(args[0])
			if !ok {
				return "", badRequest("ARRAY_CONTAINS expects a property path as first argument")
			}
			repl = "EXISTS (SELECT 1 FROM json_each(d.body, '$." + p + "') WHERE json_each.value = " + args[1] + ")"
		case "ARRAY_LENGTH":
			if len(args) != 1 {
				return "", badRequest("ARRAY_LENGTH expects 1 argument")
			}
			p, ok := propertyPath(args[0])
			if !ok {
				return "", badRequest("ARRAY_LENGTH expects a property path")
			}
			repl = "json_array_length(d.body, '$." + p + "')"
		case "CONTAINS":
			if len(args) != 2 {
				return "", badRequest("CONTAINS expects 2 arguments")
			}
			repl = "(instr(" + args[0] + ", " + args[1] + ") > 0)"
		case "STARTSWITH":
			if len(args) != 2 {
				return "", badRequest("STARTSWITH expects 2 arguments")
			}
			repl = "(substr(" + args[0] + ", 1, length(" + args[1] + ")) = " + args[1] + ")"
		case "IS_DEFINED":
			if len(args) != 1 {
				return "", badRequest("IS_DEFINED expects 1 argument")
			}
			p, ok := propertyPath(args[0])
			if !ok {
				return "", badRequest("IS_DEFINED expects a property path")
			}
			repl = "(json_type(d.body, '$." + p + "') IS NOT NULL)"
		}
		expr = expr[:loc[0]] + repl + expr[closeIdx+1:]
	}
}

func propertyPath(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	m := pathRe.FindStringSubmatch(arg)
	if m == nil || m[0] != arg {
		return "", false
	}
	return m[1], true
}

// matchParen returns the index of the parenthesis closing the one at open,
// skipping quoted literals.
func matchParen(s string, open int) (int, error) {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		ch := s[i]
		if ch == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, badRequest("unbalanced parentheses")
}

// splitArgs splits a function argument list on top-level commas.
func splitArgs(s string) []string {
	var (
		out     []string
		depth   int
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '\'':
			inQuote = !inQuote
		case inQuote:
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" || len(out) > 0 {
		out = append(out, rest)
	}
	return out
}

// splitQuoted splits s into alternating unquoted and single-quoted segments.
// Odd indexes hold quoted literals including their quotes; '' is an escaped
// quote inside a literal.
func splitQuoted(s string) []string {
	var out []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if inQuote && i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		if inQuote {
			out = append(out, s[start:i+1])
			start = i + 1
		} else {
			out = append(out, s[start:i])
			start = i
		}
		inQuote = !inQuote
	}
	out = append(out, s[start:])
	return out
}

// sqlValue converts a parameter to a value the SQLite driver binds the same
// way the codec stores it.
func sqlValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return TimeValue(x), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return TimeValue(*x), nil
	case string, bool, int64, float64:
		return x, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return sqlValue(rv.Elem().Interface())
	}
	return nil, badRequest("unsupported type %T", v)
}
