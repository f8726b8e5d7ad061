// Package datarecording stores simulation results in SQLite databases.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData writes an entry into a table that already exists. Entries
	// may be buffered until Flush is called.
	InsertData(tableName string, entry any)

	// ListTables returns the names of the tables created by this recorder.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

const defaultBatchSize = 100000

// New creates a DataRecorder that writes to path.sqlite3. An empty path
// picks a unique name. It fails if the database file already exists.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = "csim_run_" + xid.New().String()
	}

	filename := DBFilename(path)
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return NewWithDB(db), nil
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		db:        db,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(w.Flush)

	return w
}

// DBFilename returns the database file that New creates for path.
func DBFilename(path string) string {
	if strings.HasSuffix(path, ".sqlite3") {
		return path
	}

	return path + ".sqlite3"
}

type table struct {
	structType reflect.Type
	insertSQL  string
	pending    [][]any
}

// sqliteWriter buffers entries in memory and writes them in one transaction
// per flush.
type sqliteWriter struct {
	lock sync.Mutex
	db   *sql.DB

	tables     map[string]*table
	tableNames []string
	batchSize  int
	numPending int
	closed     bool
}

func columnType(kind reflect.Kind) (string, bool) {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

// columns lists the column definitions of a table holding entries like
// sample.
func columns(sample any) ([]string, error) {
	if reflect.TypeOf(sample).Kind() != reflect.Struct {
		return nil, fmt.Errorf("entry must be a struct, got %T", sample)
	}

	var defs []string

	for _, field := range structs.Fields(sample) {
		if !field.IsExported() {
			return nil, fmt.Errorf("field %s is not exported", field.Name())
		}

		colType, ok := columnType(field.Kind())
		if !ok {
			return nil, fmt.Errorf("field %s has unsupported kind %s",
				field.Name(), field.Kind())
		}

		defs = append(defs, field.Name()+" "+colType)
	}

	return defs, nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	defs, err := columns(sampleEntry)
	if err != nil {
		panic(fmt.Sprintf("table %s: %v", tableName, err))
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, exists := t.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n);",
		tableName, strings.Join(defs, ",\n\t"))
	if _, err := t.db.Exec(createSQL); err != nil {
		panic(fmt.Errorf("failed to execute %q: %w", createSQL, err))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(defs)), ", ")

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		insertSQL: fmt.Sprintf("INSERT INTO %s VALUES (%s)",
			tableName, placeholders),
	}
	t.tableNames = append(t.tableNames, tableName)
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	t.lock.Lock()
	defer t.lock.Unlock()

	table, exists := t.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		panic(fmt.Sprintf("entry of type %T does not match table %s",
			entry, tableName))
	}

	table.pending = append(table.pending, structs.Values(entry))

	t.numPending++
	if t.numPending >= t.batchSize {
		t.flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.tableNames...)
}

func (t *sqliteWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flush()
}

func (t *sqliteWriter) flush() {
	if t.closed || t.numPending == 0 {
		return
	}

	if err := t.writePending(); err != nil {
		panic(err)
	}

	t.numPending = 0
}

func (t *sqliteWriter) writePending() error {
	tx, err := t.db.Begin()
	if err != nil {
		return err
	}

	for _, name := range t.tableNames {
		table := t.tables[name]
		if len(table.pending) == 0 {
			continue
		}

		if err := insertRows(tx, table); err != nil {
			tx.Rollback()
			return fmt.Errorf("writing table %s: %w", name, err)
		}

		table.pending = nil
	}

	return tx.Commit()
}

func insertRows(tx *sql.Tx, table *table) error {
	stmt, err := tx.Prepare(table.insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range table.pending {
		if _, err := stmt.Exec(row...); err != nil {
			return err
		}
	}

	return nil
}

func (t *sqliteWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	t.flush()
	t.closed = true

	return t.db.Close()
}
