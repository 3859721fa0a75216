package utils

import (
	"reflect"
	"strings"
)

type DBTag struct {
	Column        string
	ReadOnly      bool
	PrimaryKey    bool
	AutoIncrement bool
	OmitEmpty     bool
}

// ParseTag reads a `db:"column,option,..."` struct tag. A column of "-"
// excludes the field.
func ParseTag(tagString reflect.StructTag) DBTag {
	parts := strings.Split(tagString.Get("db"), ",")

	tag := DBTag{}
	if parts[0] == "-" {
		return tag
	}

	tag.Column = parts[0]
	for _, part := range parts[1:] {
		switch part {
		case "readOnly":
			tag.ReadOnly = true
		case "primaryKey":
			tag.PrimaryKey = true
		case "autoIncrement":
			tag.AutoIncrement = true
		case "omitempty", "omitEmpty":
			tag.OmitEmpty = true
		}
	}

	return tag
}
