package sqlxrepos

import (
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
)

// sqlite stores times as fixed-width UTC text so that they sort & compare as strings
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

var sqliteTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// dialect holds what differs between the engines behind a *sqlx.DB.
type dialect struct {
	sqlite bool
	sb     sq.StatementBuilderType
}

func newDialect(db *sqlx.DB) dialect {
	if db.DriverName() == "sqlite" {
		return dialect{sqlite: true, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
	}
	return dialect{sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// timeArg converts t to the representation of a time column.
func (d dialect) timeArg(t time.Time) interface{} {
	t = core.DBTime(t)
	if d.sqlite {
		return t.Format(sqliteTimeLayout)
	}
	return t
}

// nullTimeArg is like timeArg but stores NULL for the zero time.
func (d dialect) nullTimeArg(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return d.timeArg(t)
}

// dbTime scans time columns of both engines: postgres yields time.Time, sqlite yields text.
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = dbTime{}
		return nil
	case time.Time:
		*t = dbTime{Time: v.UTC(), Valid: true}
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return errors.Errorf("cannot scan %T into a time", value)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range sqliteTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = dbTime{Time: parsed.UTC(), Valid: true}
			return nil
		}
	}
	return errors.Errorf("invalid time %q", s)
}

func getExec(def core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return def
}

func rowsAffected(res sql.Result, op string) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewStorageError(err, op)
	}
	return int(n), nil
}
