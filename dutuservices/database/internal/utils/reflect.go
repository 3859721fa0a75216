package utils

import (
	"errors"
	"reflect"
)

var ErrNotStruct = errors.New("not a struct")

// LoopOverStructFields visits the exported fields of a struct or pointer to
// struct. Embedded structs without a db tag are flattened.
func LoopOverStructFields(value reflect.Value, fieldHandler func(fieldDefinition reflect.StructField, fieldValue reflect.Value) error) error {
	if value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return ErrNotStruct
		}
		value = value.Elem()
	}

	if value.Kind() != reflect.Struct {
		return ErrNotStruct
	}

	for i := range value.NumField() {
		fieldValue := value.Field(i)
		fieldDefinition := value.Type().Field(i)

		if fieldDefinition.Anonymous && fieldDefinition.Tag.Get("db") == "" {
			if err := LoopOverStructFields(fieldValue, fieldHandler); err != nil && !errors.Is(err, ErrNotStruct) {
				return err
			}
			continue
		}

		if !fieldDefinition.IsExported() {
			continue
		}

		if err := fieldHandler(fieldDefinition, fieldValue); err != nil {
			return err
		}
	}

	return nil
}
