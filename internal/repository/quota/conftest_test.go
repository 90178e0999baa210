package quota

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/talentdex/internal/db"
)

// fakeQuerier implements querier for tests.
type fakeQuerier struct {
	execFn     func(sql string, args []any) (pgconn.CommandTag, error)
	queryFn    func(sql string, args []any) (pgx.Rows, error)
	queryRowFn func(sql string, args []any) pgx.Row
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.execFn != nil {
		return f.execFn(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.queryFn != nil {
		return f.queryFn(sql, args)
	}
	return &fakeRows{}, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if f.queryRowFn != nil {
		return f.queryRowFn(sql, args)
	}
	return fakeRow{err: pgx.ErrNoRows}
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type fakeRows struct {
	data [][]any
	i    int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.i-1], nil }

func (r *fakeRows) Next() bool {
	if r.i < len(r.data) {
		r.i++
		return true
	}
	return false
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.data[r.i-1]) }

// assign copies src into the scan destinations, wrapping values for pointer targets.
func assign(dest, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(src))
	}
	for i := range dest {
		dv := reflect.ValueOf(dest[i]).Elem()
		if src[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		sv := reflect.ValueOf(src[i])
		if dv.Kind() == reflect.Pointer && sv.Type() == dv.Type().Elem() {
			p := reflect.New(sv.Type())
			p.Elem().Set(sv)
			dv.Set(p)
			continue
		}
		dv.Set(sv)
	}
	return nil
}

// fakeKV implements kvStore for tests.
type fakeKV struct {
	values  map[string]string
	scripts int
	runFn   func(src string, keys, args []string) ([]int64, error)
	delErr  error
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(v), nil
}

func (f *fakeKV) Del(_ context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.values, key)
	return nil
}

func (f *fakeKV) RunScript(_ context.Context, src string, keys, args []string) ([]int64, error) {
	f.scripts++
	return f.runFn(src, keys, args)
}
