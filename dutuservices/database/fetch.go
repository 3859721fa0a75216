package database

import (
	"strings"
)

type FetchStyle int

const (
	FetchDefault FetchStyle = iota
	FetchLazy
	FetchAssoc
	FetchNum
	FetchBoth
	FetchObj
	FetchBound
	FetchColumn
	FetchClass
)

var fetchStyleNames = map[FetchStyle]string{
	FetchDefault: "default",
	FetchLazy:    "lazy",
	FetchAssoc:   "assoc",
	FetchNum:     "num",
	FetchBoth:    "both",
	FetchObj:     "obj",
	FetchBound:   "bound",
	FetchColumn:  "column",
	FetchClass:   "class",
}

func (style FetchStyle) String() string {
	if name, found := fetchStyleNames[style]; found {
		return name
	}

	return "unknown"
}

// fetchCodes maps the integer and symbolic codes an adapter understands to a
// style. Anything not listed resolves to FetchBoth.
type fetchCodes struct {
	numeric   map[int]FetchStyle
	supported map[FetchStyle]bool
	symbolic  bool
}

var bufferedFetchCodes = fetchCodes{
	numeric: map[int]FetchStyle{
		1: FetchAssoc,
		2: FetchNum,
	},
	supported: map[FetchStyle]bool{
		FetchAssoc: true,
		FetchNum:   true,
		FetchBoth:  true,
	},
}

var preparedFetchCodes = fetchCodes{
	numeric: map[int]FetchStyle{
		1: FetchLazy,
		2: FetchAssoc,
		3: FetchNum,
		5: FetchObj,
		6: FetchBound,
		7: FetchColumn,
		8: FetchClass,
	},
	supported: map[FetchStyle]bool{
		FetchLazy:   true,
		FetchAssoc:  true,
		FetchNum:    true,
		FetchBoth:   true,
		FetchObj:    true,
		FetchBound:  true,
		FetchColumn: true,
		FetchClass:  true,
	},
	symbolic: true,
}

func (codes fetchCodes) resolve(code any) FetchStyle {
	switch typed := code.(type) {
	case FetchStyle:
		if codes.supported[typed] {
			return typed
		}
	case int:
		if style, found := codes.numeric[typed]; found {
			return style
		}
	case string:
		if !codes.symbolic {
			break
		}

		name := strings.ToLower(typed)
		name = strings.TrimPrefix(name, "pdo::")
		name = strings.TrimPrefix(name, "fetch_")
		for style, styleName := range fetchStyleNames {
			if styleName == name && codes.supported[style] {
				return style
			}
		}
	}

	return FetchBoth
}

// Row is one result row shaped by a fetch style.
type Row struct {
	columns []string
	Assoc   map[string]any
	Num     []any
}

func (row Row) Columns() []string {
	return row.columns
}

// Get reads a column by name, falling back to its position when the row was
// fetched positionally.
func (row Row) Get(column string) (any, bool) {
	if row.Assoc != nil {
		value, found := row.Assoc[column]
		return value, found
	}

	for i, name := range row.columns {
		if name == column && i < len(row.Num) {
			return row.Num[i], true
		}
	}

	return nil, false
}

func shapeRow(columns []string, values []any, style FetchStyle) Row {
	for i, value := range values {
		if b, ok := value.([]byte); ok {
			values[i] = string(b)
		}
	}

	row := Row{columns: columns}

	switch style {
	case FetchNum:
		row.Num = values
	case FetchColumn:
		if len(values) > 0 {
			row.Num = values[:1]
		}
	case FetchBoth, FetchDefault:
		row.Num = values
		row.Assoc = assoc(columns, values)
	default:
		row.Assoc = assoc(columns, values)
	}

	return row
}

func assoc(columns []string, values []any) map[string]any {
	result := make(map[string]any, len(columns))
	for i, column := range columns {
		result[column] = values[i]
	}

	return result
}
