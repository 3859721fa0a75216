package database

import (
	"github.com/lunagic/dutu/dutuservices/database/internal/utils"
)

// bufferedExecutor runs statements whose insert, update and delete values
// are already in the text. Where/having values bind to `?` markers, each as
// the driver type named by its tag.
type bufferedExecutor struct {
	runner
}

func newBufferedExecutor(adapter *Adapter) *bufferedExecutor {
	executor := &bufferedExecutor{}
	executor.runner = runner{
		adapter: adapter,
		binding: BindingInterpolated,
		codes:   bufferedFetchCodes,
		compile: executor.compile,
	}

	return executor
}

func (executor *bufferedExecutor) compile(statement Statement) (string, []any, error) {
	positional := []any{}
	for _, parameter := range statement.parameters {
		positional = append(positional, typedArg(parameter.Value))
	}

	return utils.Prepare(statement.text, positional, nil, executor.adapter.driver.dialect())
}

func typedArg(value Value) any {
	switch value.Tag() {
	case 'i':
		return value.integer
	case 'd':
		return value.float
	case 'b':
		return value.binary
	}

	if value.IsNull() {
		return nil
	}

	return value.text
}
