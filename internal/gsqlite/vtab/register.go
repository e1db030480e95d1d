package vtab

import "github.com/mattn/go-sqlite3"

// Register installs both table-valued function modules on conn. Call this
// from a sqlite3.SQLiteDriver's ConnectHook so every opened connection gets
// genomic_range_rowids and genomic_range_index_levels.
func Register(conn *sqlite3.SQLiteConn) error {
	if err := conn.CreateModule(RowidsModuleName, RowidsModule{}); err != nil {
		return err
	}
	return conn.CreateModule(LevelsModuleName, LevelsModule{})
}
