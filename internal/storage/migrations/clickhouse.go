package migrations

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	chstore "diamond-token/internal/storage/clickhouse"
)

const createClickhouseHistory = `CREATE TABLE IF NOT EXISTS schema_migrations (
    name       String,
    applied_at DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(applied_at)
ORDER BY name`

// RunClickhouseMigrations creates the analytics database named in dsn if
// needed, applies the files not yet recorded in its schema_migrations table
// and returns a connection to it.
//
// ClickHouse has no transactions: a file that fails midway is not recorded
// and runs again in full next time, so every statement must be idempotent.
func RunClickhouseMigrations(ctx context.Context, dsn string, logger *log.Logger) (*chstore.Conn, error) {
	if logger == nil {
		logger = log.Default()
	}
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	if err := applyClickhouse(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn, logger *log.Logger) error {
	migs, err := Clickhouse()
	if err != nil {
		return err
	}
	if err := conn.Exec(ctx, createClickhouseHistory); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	recorded, err := clickhouseHistory(ctx, conn)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range migs {
		if recorded[m.Name] {
			continue
		}
		stmts, err := splitStatements(m.SQL)
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", m.Name, err)
		}
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
		if err := conn.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES (?)", m.Name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
		logger.Printf("Applied clickhouse migration %s", m.Name)
		applied++
	}
	logger.Printf("ClickHouse analytics schema current (%d files, %d new)", len(migs), applied)
	return nil
}

func clickhouseHistory(ctx context.Context, conn *chstore.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, "SELECT name FROM schema_migrations FINAL")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	recorded := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		recorded[name] = true
	}
	return recorded, rows.Err()
}

// splitStatements cuts sql into single statements for Exec, which runs one
// at a time. Semicolons inside single-quoted literals and -- comments do not
// split.
func splitStatements(sql string) ([]string, error) {
	var (
		stmts    []string
		cur      strings.Builder
		inString bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inString:
			cur.WriteByte(ch)
			switch {
			case ch == '\\' && i+1 < len(sql):
				i++
				cur.WriteByte(sql[i])
			case ch == '\'' && i+1 < len(sql) && sql[i+1] == '\'':
				i++
				cur.WriteByte(sql[i])
			case ch == '\'':
				inString = false
			}
		case ch == '\'':
			inString = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inString {
		return nil, fmt.Errorf("unterminated string literal")
	}
	flush()
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
