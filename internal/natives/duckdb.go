package natives

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/chazu/rasp/internal/engine"
	"github.com/chazu/rasp/internal/heap"
	"github.com/chazu/rasp/internal/value"
)

// analyticsDB is a process-wide in-memory DuckDB connection, opened lazily
// on the first query_rows call. query_rows is the native ABI's bridge to
// an analytical query engine, the domain-stack counterpart of the
// teacher's SQLite-backed runtime.Persistence.
var (
	analyticsOnce sync.Once
	analyticsDB   *sql.DB
	analyticsErr  error
)

func openAnalyticsDB() (*sql.DB, error) {
	analyticsOnce.Do(func() {
		analyticsDB, analyticsErr = sql.Open("duckdb", "")
	})
	return analyticsDB, analyticsErr
}

// queryRowsNative runs its string_ref argument as a SQL query against the
// in-memory analytics database and returns a sequence of row sequences.
// Columns are coerced to value cells: integers and floats stay numeric,
// booleans become boolean, NULL becomes dud, and strings and byte slices
// become heap strings. Any other column type fails the call.
func queryRowsNative(e *engine.Engine, argc int16) bool {
	if argc != 1 {
		return false
	}
	arg, err := e.Access(argc, 0)
	if err != nil || !arg.IsStringRef() {
		return false
	}
	queryObj, err := e.AccessHeap().Get(arg.HeapID())
	if err != nil || queryObj.Kind != heap.String {
		return false
	}

	db, err := openAnalyticsDB()
	if err != nil {
		return false
	}
	rows, err := db.Query(string(queryObj.Bytes))
	if err != nil {
		return false
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return false
	}

	h := e.AccessHeap()
	resultID := h.NewSequence()

	scanBuf := make([]any, len(cols))
	scanPtrs := make([]any, len(cols))
	for i := range scanBuf {
		scanPtrs[i] = &scanBuf[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			return false
		}
		rowID := h.NewSequence()
		for _, col := range scanBuf {
			v, err := cellFor(h, col)
			if err != nil {
				return false
			}
			if err := h.Push(rowID, v); err != nil {
				return false
			}
		}
		if err := h.Push(resultID, value.SequenceRefOf(rowID)); err != nil {
			return false
		}
	}
	if err := rows.Err(); err != nil {
		return false
	}

	return e.Return(value.SequenceRefOf(resultID), argc) == nil
}

func cellFor(h *heap.Heap, col any) (value.Value, error) {
	switch x := col.(type) {
	case nil:
		return value.Nil(), nil
	case bool:
		return value.Bool(x), nil
	case int64:
		return value.Int(int32(x)), nil
	case int32:
		return value.Int(x), nil
	case float64:
		return value.Float(x), nil
	case float32:
		return value.Float(float64(x)), nil
	case string:
		id := h.NewString(x)
		return value.StringRefOf(id), nil
	case []byte:
		id := h.NewString(string(x))
		return value.StringRefOf(id), nil
	default:
		return value.Value{}, fmt.Errorf("natives: unsupported query_rows column type %T", col)
	}
}
