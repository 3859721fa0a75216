package database

import (
	"reflect"
	"slices"
	"strings"

	"github.com/lunagic/dutu/dutuservices/database/internal/utils"
)

// Binding is how an adapter expects values to reach the database.
type Binding int

const (
	// BindingInterpolated splices insert, update and delete values into the
	// SQL text and binds where/having values to positional `?` markers.
	BindingInterpolated Binding = iota
	// BindingNamed binds every value to a `:name` marker.
	BindingNamed
)

type statementKind int

const (
	kindNone statementKind = iota
	kindSelect
	kindInsert
	kindUpdate
	kindDelete
)

func (kind statementKind) String() string {
	return [...]string{"", "SELECT", "INSERT", "UPDATE", "DELETE"}[kind]
}

// clauseStage orders the clauses of a statement. A clause may only be
// appended at a stage later than the last one.
type clauseStage int

const (
	stageNone clauseStage = iota
	stageTarget
	stageModifier
	stageWhere
	stageGroupBy
	stageHaving
	stageOrderBy
	stageLimit
)

type Parameter struct {
	Name  string
	Value Value
}

type Field struct {
	Name  string
	Value any
}

func F(name string, value any) Field {
	return Field{Name: name, Value: value}
}

// FieldsOf reads the db tagged fields of a struct in declaration order,
// skipping readOnly and autoIncrement columns and, for omitempty columns,
// zero values.
func FieldsOf(entity any) ([]Field, error) {
	fields := []Field{}

	if err := utils.LoopOverStructFields(reflect.ValueOf(entity), func(fieldDefinition reflect.StructField, fieldValue reflect.Value) error {
		tag := utils.ParseTag(fieldDefinition.Tag)
		if tag.Column == "" || tag.ReadOnly || tag.AutoIncrement {
			return nil
		}

		if tag.OmitEmpty && fieldValue.IsZero() {
			return nil
		}

		fields = append(fields, F(tag.Column, fieldValue.Interface()))

		return nil
	}); err != nil {
		return nil, misuse("fields", "%T: %s", entity, err)
	}

	return fields, nil
}

// Statement is the SQL text and parameters accumulated by one builder chain.
type Statement struct {
	text       string
	table      string
	kind       statementKind
	stage      clauseStage
	distinct   bool
	parameters []Parameter
	fetchStyle FetchStyle
}

func (statement Statement) SQL() string {
	return statement.text
}

func (statement Statement) Table() string {
	return statement.table
}

func (statement Statement) FetchStyle() FetchStyle {
	return statement.fetchStyle
}

func (statement Statement) IsSelect() bool {
	return statement.kind == kindSelect
}

func (statement Statement) Parameters() []Parameter {
	return slices.Clone(statement.parameters)
}

// Signature is the concatenated type tags of the parameters, in binding
// order.
func (statement Statement) Signature() string {
	signature := strings.Builder{}
	for _, parameter := range statement.parameters {
		signature.WriteByte(parameter.Value.Tag())
	}

	return signature.String()
}

// Args returns the positional parameter values as driver values.
func (statement Statement) Args() []any {
	args := []any{}
	for _, parameter := range statement.parameters {
		if parameter.Name == "" {
			args = append(args, parameter.Value.Any())
		}
	}

	return args
}

// NamedArgs returns the named parameter values as driver values.
func (statement Statement) NamedArgs() map[string]any {
	args := map[string]any{}
	for _, parameter := range statement.parameters {
		if parameter.Name != "" {
			args[parameter.Name] = parameter.Value.Any()
		}
	}

	return args
}

func (statement Statement) withParameters(parameters ...Parameter) Statement {
	statement.parameters = append(slices.Clone(statement.parameters), parameters...)

	return statement
}
