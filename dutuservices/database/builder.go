package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/lunagic/dutu/dutuservices/database/internal/utils"
)

// Builder accumulates one statement. Every method returns a new Builder and
// leaves the receiver untouched, so a partially built chain can be reused.
//
// The first misuse is recorded and returned by Build and by every terminal
// method; the calls after it do nothing.
type Builder struct {
	adapter   *Adapter
	statement Statement
	err       error
}

func (builder Builder) fail(err error) Builder {
	if builder.err == nil {
		builder.err = err
	}

	return builder
}

func (builder Builder) binding() Binding {
	return builder.adapter.executor.Binding()
}

func (builder Builder) start(kind statementKind, table string, text string, stage clauseStage) Builder {
	return Builder{
		adapter: builder.adapter,
		statement: Statement{
			text:       text,
			table:      table,
			kind:       kind,
			stage:      stage,
			fetchStyle: builder.statement.fetchStyle,
		},
		err: builder.err,
	}
}

// expect checks that a clause can be appended at stage to a statement of one
// of the given kinds.
func (builder Builder) expect(op string, stage clauseStage, kinds ...statementKind) error {
	if builder.adapter == nil {
		return misuse(op, "no adapter")
	}

	if builder.statement.kind == kindNone {
		return misuse(op, "no statement started")
	}

	if !slices.Contains(kinds, builder.statement.kind) {
		return misuse(op, "not valid on %s", builder.statement.kind)
	}

	if builder.statement.stage >= stage {
		return misuse(op, "clause is out of order")
	}

	return nil
}

// entry checks what every entry call needs before it renders anything.
func (builder Builder) entry(op string, table string) error {
	if builder.adapter == nil {
		return misuse(op, "no adapter")
	}

	if table == "" {
		return misuse(op, "blank table")
	}

	return nil
}

func (builder Builder) values(op string, fields []Field) ([]string, []Value, error) {
	if len(fields) == 0 {
		return nil, nil, misuse(op, "no fields")
	}

	columns := []string{}
	values := []Value{}
	for _, field := range fields {
		if field.Name == "" {
			return nil, nil, misuse(op, "blank field name")
		}

		if slices.Contains(columns, field.Name) {
			return nil, nil, misuse(op, "field %s given twice", field.Name)
		}

		value, err := ValueOf(field.Value)
		if err != nil {
			return nil, nil, misuse(op, "field %s: %s", field.Name, err)
		}

		columns = append(columns, field.Name)
		values = append(values, value)
	}

	return columns, values, nil
}

// render returns the SQL for each value and the parameters to bind, as the
// adapter's binding requires. Columns that map to the same marker name get
// numbered markers.
func (builder Builder) render(columns []string, values []Value) ([]string, []Parameter) {
	rendered := []string{}
	parameters := []Parameter{}
	taken := []string{}

	for i, value := range values {
		if builder.binding() == BindingInterpolated {
			rendered = append(rendered, builder.adapter.driver.renderLiteral(value))
			continue
		}

		name := utils.UniqueName(utils.ParameterName(columns[i]), taken)
		taken = append(taken, name)
		rendered = append(rendered, ":"+name)
		parameters = append(parameters, Parameter{Name: name, Value: value})
	}

	return rendered, parameters
}

func (builder Builder) Insert(table string, fields ...Field) Builder {
	if err := builder.entry("insert", table); err != nil {
		return builder.fail(err)
	}

	columns, values, err := builder.values("insert", fields)
	if err != nil {
		return builder.fail(err)
	}

	rendered, parameters := builder.render(columns, values)

	next := builder.start(kindInsert, table, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(rendered, ", "),
	), stageTarget)
	next.statement = next.statement.withParameters(parameters...)

	return next
}

func (builder Builder) Update(table string, fields ...Field) Builder {
	if err := builder.entry("update", table); err != nil {
		return builder.fail(err)
	}

	columns, values, err := builder.values("update", fields)
	if err != nil {
		return builder.fail(err)
	}

	rendered, parameters := builder.render(columns, values)

	sets := []string{}
	for i, column := range columns {
		sets = append(sets, fmt.Sprintf("%s = %s", column, rendered[i]))
	}

	next := builder.start(kindUpdate, table, fmt.Sprintf(
		"UPDATE %s SET %s",
		table,
		strings.Join(sets, ", "),
	), stageTarget)
	next.statement = next.statement.withParameters(parameters...)

	return next
}

// Delete starts a DELETE. Each where field becomes an equality condition and
// the conditions are joined with AND; a nil value compares with IS NULL.
func (builder Builder) Delete(table string, where ...Field) Builder {
	if err := builder.entry("delete", table); err != nil {
		return builder.fail(err)
	}

	text := "DELETE FROM " + table
	if len(where) == 0 {
		return builder.start(kindDelete, table, text, stageTarget)
	}

	columns, values, err := builder.values("delete", where)
	if err != nil {
		return builder.fail(err)
	}

	rendered, parameters := builder.render(columns, values)

	conditions := []string{}
	for i, column := range columns {
		if values[i].IsNull() {
			conditions = append(conditions, column+" IS NULL")
			continue
		}

		conditions = append(conditions, fmt.Sprintf("%s = %s", column, rendered[i]))
	}

	parameters = slices.DeleteFunc(parameters, func(parameter Parameter) bool {
		return parameter.Value.IsNull()
	})

	next := builder.start(kindDelete, table, text+" WHERE "+strings.Join(conditions, " AND "), stageWhere)
	next.statement = next.statement.withParameters(parameters...)

	return next
}

func (builder Builder) Select(table string, fields ...string) Builder {
	if err := builder.entry("select", table); err != nil {
		return builder.fail(err)
	}

	fieldNames := "*"
	if len(fields) > 0 {
		fieldNames = strings.Join(fields, ", ")
	}

	return builder.start(kindSelect, table, fmt.Sprintf("SELECT %s FROM %s", fieldNames, table), stageTarget)
}

// Distinct splices DISTINCT after the SELECT keyword.
func (builder Builder) Distinct() Builder {
	if builder.err != nil {
		return builder
	}

	if err := builder.expect("distinct", stageWhere, kindSelect); err != nil {
		return builder.fail(err)
	}

	if builder.statement.distinct {
		return builder.fail(misuse("distinct", "already distinct"))
	}

	verb, rest, _ := strings.Cut(builder.statement.text, " ")
	builder.statement.text = verb + " DISTINCT " + rest
	builder.statement.distinct = true
	builder.statement.stage = stageModifier

	return builder
}

// Aggregate adds KEYWORD(field) to the select list, after any fields already
// selected. An empty field aggregates over *.
func (builder Builder) Aggregate(keyword string, field string, alias string) Builder {
	if builder.err != nil {
		return builder
	}

	if err := builder.expect("aggregate", stageWhere, kindSelect); err != nil {
		return builder.fail(err)
	}

	if keyword == "" {
		return builder.fail(misuse("aggregate", "blank keyword"))
	}

	if field == "" {
		field = "*"
	}

	aggregate := fmt.Sprintf("%s(%s)", strings.ToUpper(keyword), field)
	if alias != "" {
		aggregate += " AS " + alias
	}

	fields := strings.TrimPrefix(builder.statement.text, "SELECT ")
	fields = strings.TrimSuffix(fields, " FROM "+builder.statement.table)

	modifier := ""
	if builder.statement.distinct {
		modifier = "DISTINCT "
		fields = strings.TrimPrefix(fields, modifier)
	}

	if fields != "*" {
		aggregate = fields + ", " + aggregate
	}

	builder.statement.text = fmt.Sprintf("SELECT %s%s FROM %s", modifier, aggregate, builder.statement.table)
	builder.statement.stage = stageModifier

	return builder
}

func (builder Builder) Count(field string, alias string) Builder {
	return builder.Aggregate("COUNT", field, alias)
}

func (builder Builder) Sum(field string, alias string) Builder {
	return builder.Aggregate("SUM", field, alias)
}

func (builder Builder) Min(field string, alias string) Builder {
	return builder.Aggregate("MIN", field, alias)
}

func (builder Builder) Max(field string, alias string) Builder {
	return builder.Aggregate("MAX", field, alias)
}

func (builder Builder) Avg(field string, alias string) Builder {
	return builder.Aggregate("AVG", field, alias)
}

// Where appends a WHERE clause. The buffered adapter takes positional
// arguments for `?` markers; the prepared adapter takes sql.Named arguments or
// a map[string]any for `:name` markers.
func (builder Builder) Where(clause string, args ...any) Builder {
	return builder.condition("where", "WHERE", stageWhere, clause, args, kindSelect, kindUpdate, kindDelete)
}

// Having appends a HAVING clause; its parameters bind after the WHERE ones.
func (builder Builder) Having(clause string, args ...any) Builder {
	return builder.condition("having", "HAVING", stageHaving, clause, args, kindSelect)
}

func (builder Builder) condition(op string, keyword string, stage clauseStage, clause string, args []any, kinds ...statementKind) Builder {
	if builder.err != nil {
		return builder
	}

	if err := builder.expect(op, stage, kinds...); err != nil {
		return builder.fail(err)
	}

	if strings.TrimSpace(clause) == "" {
		return builder.fail(misuse(op, "blank clause"))
	}

	clause, parameters, err := builder.bind(op, clause, args)
	if err != nil {
		return builder.fail(err)
	}

	builder.statement.text += " " + keyword + " " + clause
	builder.statement.stage = stage
	builder.statement = builder.statement.withParameters(parameters...)

	return builder
}

// bind checks the arguments of a where/having fragment against its markers.
// A named marker already bound to a different value by an earlier call is
// renamed in the returned clause.
func (builder Builder) bind(op string, clause string, args []any) (string, []Parameter, error) {
	dialect := builder.adapter.driver.dialect()
	positional, named := utils.Placeholders(clause, dialect)

	if builder.binding() == BindingInterpolated {
		if len(named) > 0 {
			return "", nil, misuse(op, "positional binding cannot bind :%s", named[0])
		}

		if positional != len(args) {
			return "", nil, misuse(op, "%d `?` markers and %d arguments", positional, len(args))
		}

		parameters := []Parameter{}
		for i, arg := range args {
			if _, isNamed := arg.(sql.NamedArg); isNamed {
				return "", nil, misuse(op, "argument %d is named", i)
			}

			value, err := ValueOf(arg)
			if err != nil {
				return "", nil, misuse(op, "argument %d: %s", i, err)
			}

			parameters = append(parameters, Parameter{Value: value})
		}

		return clause, parameters, nil
	}

	if positional > 0 {
		return "", nil, misuse(op, "named binding cannot bind `?` markers")
	}

	namedArgs := []sql.NamedArg{}
	for i, arg := range args {
		switch typed := arg.(type) {
		case sql.NamedArg:
			namedArgs = append(namedArgs, typed)
		case map[string]any:
			keys := []string{}
			for key := range typed {
				keys = append(keys, key)
			}
			slices.Sort(keys)

			for _, key := range keys {
				namedArgs = append(namedArgs, sql.Named(key, typed[key]))
			}
		default:
			return "", nil, misuse(op, "argument %d is not named", i)
		}
	}

	parameters := []Parameter{}
	for _, namedArg := range namedArgs {
		name := strings.TrimPrefix(namedArg.Name, ":")
		if !slices.Contains(named, name) {
			return "", nil, misuse(op, "no :%s marker in clause", name)
		}

		value, err := ValueOf(namedArg.Value)
		if err != nil {
			return "", nil, misuse(op, "argument :%s: %s", name, err)
		}

		if existing := slices.IndexFunc(parameters, hasName(name)); existing >= 0 {
			if !parameters[existing].Value.equal(value) {
				return "", nil, misuse(op, ":%s is given two values", name)
			}
			continue
		}

		parameters = append(parameters, Parameter{Name: name, Value: value})
	}

	for _, name := range named {
		if !slices.ContainsFunc(parameters, hasName(name)) {
			return "", nil, misuse(op, "no argument for :%s", name)
		}
	}

	taken := []string{}
	for _, parameter := range append(slices.Clone(builder.statement.parameters), parameters...) {
		taken = append(taken, parameter.Name)
	}

	renames := map[string]string{}
	bound := []Parameter{}
	for _, parameter := range parameters {
		existing := slices.IndexFunc(builder.statement.parameters, hasName(parameter.Name))
		if existing >= 0 {
			if builder.statement.parameters[existing].Value.equal(parameter.Value) {
				continue
			}

			renamed := utils.UniqueName(parameter.Name, taken)
			renames[parameter.Name] = renamed
			taken = append(taken, renamed)
			parameter.Name = renamed
		}

		bound = append(bound, parameter)
	}

	if len(renames) > 0 {
		clause = utils.RenameMarkers(clause, renames, dialect)
	}

	return clause, bound, nil
}

func hasName(name string) func(parameter Parameter) bool {
	return func(parameter Parameter) bool {
		return parameter.Name == name
	}
}

func (builder Builder) GroupBy(fields []string, order string) Builder {
	return builder.list("group by", "GROUP BY", stageGroupBy, fields, order, kindSelect)
}

func (builder Builder) OrderBy(fields []string, order string) Builder {
	return builder.list("order by", "ORDER BY", stageOrderBy, fields, order, kindSelect, kindUpdate, kindDelete)
}

func (builder Builder) list(op string, keyword string, stage clauseStage, fields []string, order string, kinds ...statementKind) Builder {
	if builder.err != nil {
		return builder
	}

	if err := builder.expect(op, stage, kinds...); err != nil {
		return builder.fail(err)
	}

	if len(fields) == 0 {
		return builder.fail(misuse(op, "no fields"))
	}

	text := " " + keyword + " " + strings.Join(fields, ", ")

	switch strings.ToUpper(order) {
	case "":
	case "ASC", "DESC":
		text += " " + strings.ToUpper(order)
	default:
		return builder.fail(misuse(op, "unknown order %q", order))
	}

	builder.statement.text += text
	builder.statement.stage = stage

	return builder
}

// Limit appends LIMIT offset[, max]. A max of 0 is left out.
func (builder Builder) Limit(offset int, max ...int) Builder {
	if builder.err != nil {
		return builder
	}

	if err := builder.expect("limit", stageLimit, kindSelect, kindUpdate, kindDelete); err != nil {
		return builder.fail(err)
	}

	if len(max) > 1 {
		return builder.fail(misuse("limit", "more than one max"))
	}

	count := 0
	if len(max) == 1 {
		count = max[0]
	}

	if offset < 0 || count < 0 {
		return builder.fail(misuse("limit", "negative bound"))
	}

	builder.statement.text += " " + builder.adapter.driver.renderLimit(offset, count)
	builder.statement.stage = stageLimit

	return builder
}

// SetFetchStyle sets the row shape from a FetchStyle or from one of the
// adapter's integer or symbolic codes. Unknown codes mean FetchBoth.
func (builder Builder) SetFetchStyle(code any) Builder {
	if builder.adapter == nil {
		return builder.fail(misuse("fetch style", "no adapter"))
	}

	builder.statement.fetchStyle = builder.adapter.executor.ResolveFetchStyle(code)

	return builder
}

// Query returns the SQL accumulated so far.
func (builder Builder) Query() string {
	return builder.statement.text
}

func (builder Builder) Build() (Statement, error) {
	if builder.err != nil {
		return builder.statement, builder.err
	}

	if builder.adapter == nil {
		return builder.statement, misuse("build", "no adapter")
	}

	if builder.statement.kind == kindNone {
		return builder.statement, misuse("build", "no statement started")
	}

	return builder.statement, nil
}

func (builder Builder) Execute(ctx context.Context) error {
	statement, err := builder.Build()
	if err != nil {
		return err
	}

	return builder.adapter.executor.Execute(ctx, statement)
}

// AffectedRows runs the statement and returns the rows it changed, or for a
// SELECT the rows it returned.
func (builder Builder) AffectedRows(ctx context.Context) (int64, error) {
	statement, err := builder.Build()
	if err != nil {
		return 0, err
	}

	return builder.adapter.executor.AffectedRows(ctx, statement)
}

func (builder Builder) RowCount(ctx context.Context) (int64, error) {
	return builder.AffectedRows(ctx)
}

// Fetch runs the statement and returns its first row, or ErrNoRows. A style
// given here overrides the builder's for this call only.
func (builder Builder) Fetch(ctx context.Context, style ...any) (Row, error) {
	statement, err := builder.Build()
	if err != nil {
		return Row{}, err
	}

	return builder.adapter.executor.Fetch(ctx, statement, builder.style(statement, style))
}

func (builder Builder) FetchAll(ctx context.Context, style ...any) ([]Row, error) {
	statement, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return builder.adapter.executor.FetchAll(ctx, statement, builder.style(statement, style))
}

// FetchInto scans the first row into dest, a pointer to a struct or to a
// single scannable value.
func (builder Builder) FetchInto(ctx context.Context, dest any) error {
	statement, err := builder.Build()
	if err != nil {
		return err
	}

	return builder.adapter.executor.FetchInto(ctx, statement, dest)
}

// FetchAllInto scans every row into dest, a pointer to a slice.
func (builder Builder) FetchAllInto(ctx context.Context, dest any) error {
	statement, err := builder.Build()
	if err != nil {
		return err
	}

	return builder.adapter.executor.FetchAllInto(ctx, statement, dest)
}

func (builder Builder) LastInsertID() (int64, error) {
	if builder.adapter == nil {
		return 0, misuse("last insert id", "no adapter")
	}

	return builder.adapter.executor.LastInsertID()
}

func (builder Builder) style(statement Statement, override []any) FetchStyle {
	if len(override) > 0 {
		return builder.adapter.executor.ResolveFetchStyle(override[0])
	}

	return statement.fetchStyle
}

func (builder Builder) String() string {
	if builder.err != nil {
		return builder.statement.text + " (" + builder.err.Error() + ")"
	}

	return builder.statement.text + " [" + strconv.Itoa(len(builder.statement.parameters)) + " parameters]"
}
