package database

import (
	"github.com/lunagic/dutu/dutuservices/database/internal/utils"
)

// preparedExecutor binds every value to a `:name` marker. Markers are
// rewritten to the driver's bindvars when the statement runs.
type preparedExecutor struct {
	runner
}

func newPreparedExecutor(adapter *Adapter) *preparedExecutor {
	executor := &preparedExecutor{}
	executor.runner = runner{
		adapter: adapter,
		binding: BindingNamed,
		codes:   preparedFetchCodes,
		compile: executor.compile,
	}

	return executor
}

func (executor *preparedExecutor) compile(statement Statement) (string, []any, error) {
	return utils.Prepare(statement.text, nil, statement.NamedArgs(), executor.adapter.driver.dialect())
}
