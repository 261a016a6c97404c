// Command analyze loads bench.Row Parquet output into an in-process DuckDB
// and runs ad hoc SQL over search-benchmark history.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

func main() {
	root := flag.String("dir", "data/bench", "Directory tree to glob for *.parquet bench output")
	query := flag.String("sql", "SELECT run_id, COUNT(*) AS rows, MAX(tree_nodes) AS max_tree_nodes, AVG(sims_per_sec) AS avg_sims_per_sec FROM runs GROUP BY run_id ORDER BY run_id", "SQL to run against the 'runs' view")
	flag.Parse()

	db, err := openDuckDBOverGlob(*root)
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(*query)
	if err != nil {
		log.Fatalf("analyze: query failed: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		log.Fatalf("analyze: columns: %v", err)
	}
	fmt.Println(strings.Join(cols, "\t"))

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			log.Fatalf("analyze: scan: %v", err)
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = fmt.Sprintf("%v", v)
		}
		fmt.Println(strings.Join(parts, "\t"))
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("analyze: rows: %v", err)
	}
}

// openDuckDBOverGlob opens an in-memory DuckDB and creates a "runs" view
// over every Parquet file under root, matching bench.Row's schema.
func openDuckDBOverGlob(root string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA threads=4"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragma: %w", err)
	}

	glob := "'" + escapeSQLString(filepath.Join(root, "**", "*.parquet")) + "'"
	sqlText := fmt.Sprintf(`CREATE OR REPLACE VIEW runs AS
		SELECT * FROM read_parquet([%s], filename=true, union_by_name=true)
		WHERE NOT contains(filename, '/tmp/')`, glob)
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs view: %w", err)
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
