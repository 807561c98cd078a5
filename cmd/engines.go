package cmd

import (
	"emperror.dev/errors"

	"github.com/JustFiesta/DB-engine-comparison/common"
	"github.com/JustFiesta/DB-engine-comparison/mongodb"
	"github.com/JustFiesta/DB-engine-comparison/sqldb"
)

var embeddedEngines = []sqldb.Engine{sqldb.EngineDolt, sqldb.EngineSQLite}

func newCUT(engine string, config *common.Config) (common.CUT, error) {
	switch engine {
	case "mongodb":
		opts, err := mongodb.OptionsFrom(config.MongoDB)
		if err != nil {
			return nil, err
		}
		return mongodb.New(opts), nil
	case string(sqldb.EngineMariaDB):
		opts, err := sqldb.OptionsFrom(sqldb.EngineMariaDB, config.MariaDB, "")
		if err != nil {
			return nil, err
		}
		return sqldb.New(opts), nil
	case string(sqldb.EngineDolt):
		opts, err := sqldb.OptionsFrom(sqldb.EngineDolt, config.Dolt, config.DatabasePath(engine))
		if err != nil {
			return nil, err
		}
		return sqldb.New(opts), nil
	case string(sqldb.EngineSQLite):
		opts, err := sqldb.OptionsFrom(sqldb.EngineSQLite, config.SQLite, config.DatabasePath(engine))
		if err != nil {
			return nil, err
		}
		return sqldb.New(opts), nil
	}
	return nil, errors.WithDetails(sqldb.ErrUnsupportedEngine, "engine", engine)
}
