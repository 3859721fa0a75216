package utils

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

var ErrParameterMismatch = errors.New("parameter mismatch")

// Dialect describes how a driver writes bindvars and string literals.
type Dialect struct {
	NumberedParams   bool
	BackslashEscapes bool
}

// walk visits the bind markers of a query outside quoted literals and
// identifiers. The replacement returned by visit is written in place of the
// marker. A `::` cast is not a marker.
func walk(query string, dialect Dialect, visit func(name string) string) string {
	result := strings.Builder{}
	runes := []rune(query)

	var quote rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			result.WriteRune(r)
			if r == '\\' && dialect.BackslashEscapes && quote != '`' && i+1 < len(runes) {
				i++
				result.WriteRune(runes[i])
				continue
			}
			if r == quote {
				quote = 0
			}
			continue
		}

		switch r {
		case '\'', '"', '`':
			quote = r
		case '?':
			result.WriteString(visit(""))
			continue
		case ':':
			if i+1 < len(runes) && runes[i+1] == ':' {
				result.WriteString("::")
				i++
				continue
			}

			end := i + 1
			for end < len(runes) && isNameRune(runes[end]) {
				end++
			}
			if end == i+1 {
				break
			}

			result.WriteString(visit(string(runes[i+1 : end])))
			i = end - 1
			continue
		}

		result.WriteRune(r)
	}

	return result.String()
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

// Placeholders reports the bind markers of a clause fragment: the number of
// positional `?` markers and the names of `:name` markers in order.
func Placeholders(clause string, dialect Dialect) (int, []string) {
	positional := 0
	named := []string{}

	walk(clause, dialect, func(name string) string {
		if name == "" {
			positional++
		} else {
			named = append(named, name)
		}

		return ""
	})

	return positional, named
}

// RenameMarkers rewrites the `:name` markers of a clause found in renames.
func RenameMarkers(clause string, renames map[string]string, dialect Dialect) string {
	return walk(clause, dialect, func(name string) string {
		if name == "" {
			return "?"
		}

		if renamed, found := renames[name]; found {
			return ":" + renamed
		}

		return ":" + name
	})
}

// UniqueName returns name, or name with the first free numeric suffix when
// it is already taken.
func UniqueName(name string, taken []string) string {
	if !slices.Contains(taken, name) {
		return name
	}

	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !slices.Contains(taken, candidate) {
			return candidate
		}
	}
}

// ParameterName turns a column reference into a usable `:name` marker name.
func ParameterName(column string) string {
	name := strings.Map(func(r rune) rune {
		if isNameRune(r) && r != '.' {
			return r
		}
		if r == '.' {
			return '_'
		}

		return -1
	}, column)
	if name == "" {
		return "param"
	}

	return name
}

// Prepare rewrites the markers of a query into the driver's bindvars (`?` or
// `$N`) and returns the arguments in bindvar order. Positional markers consume
// positional in order; named markers are looked up in named.
func Prepare(statement string, positional []any, named map[string]any, dialect Dialect) (string, []any, error) {
	args := []any{}
	counter := 0
	used := 0
	var err error

	paramBuilder := func() string {
		counter++
		if !dialect.NumberedParams {
			return "?"
		}

		return fmt.Sprintf("$%d", counter)
	}

	newStatement := walk(strings.TrimSpace(statement), dialect, func(name string) string {
		if name == "" {
			if used >= len(positional) {
				err = fmt.Errorf("%w: more `?` markers than arguments", ErrParameterMismatch)
				return "?"
			}

			args = append(args, positional[used])
			used++

			return paramBuilder()
		}

		value, found := named[name]
		if !found {
			err = fmt.Errorf("%w: no argument for :%s", ErrParameterMismatch, name)
			return ":" + name
		}

		args = append(args, value)

		return paramBuilder()
	})
	if err != nil {
		return "", nil, err
	}

	if used != len(positional) {
		return "", nil, fmt.Errorf("%w: %d arguments for %d `?` markers", ErrParameterMismatch, len(positional), used)
	}

	return newStatement, args, nil
}
