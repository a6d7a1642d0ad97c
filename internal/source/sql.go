package source

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Query describes how one entity type is read from and written to a table.
// Select aliases its columns to field names; Writable maps the writable field
// names back to table columns.
type Query struct {
	Select    string
	Table     string
	IDColumn  string
	IDField   string
	NameField string
	Writable  map[string]string
}

func (q Query) idField() string {
	if q.IDField != "" {
		return q.IDField
	}
	return q.IDColumn
}

// SQLSource reads and writes entities with database/sql
type SQLSource struct {
	system  models.System
	db      *sql.DB
	driver  string
	queries map[string]Query
	logger  *logrus.Logger
}

// NewSQLSource opens a connection pool for params. The pool connects lazily.
func NewSQLSource(system models.System, params config.ConnectionParams, queries map[string]Query, logger *logrus.Logger) (*SQLSource, error) {
	dsn, err := DSN(params)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(params.Driver, dsn)
	if err != nil {
		return nil, apperrors.NewConnectionError(fmt.Sprintf("open %s database", system), err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return NewSQLSourceFromDB(system, db, params.Driver, queries, logger), nil
}

// NewSQLSourceFromDB wraps an existing pool
func NewSQLSourceFromDB(system models.System, db *sql.DB, driver string, queries map[string]Query, logger *logrus.Logger) *SQLSource {
	return &SQLSource{system: system, db: db, driver: driver, queries: queries, logger: logger}
}

// DSN builds the driver connection string for params
func DSN(params config.ConnectionParams) (string, error) {
	port := ""
	if params.Port > 0 {
		port = strconv.Itoa(params.Port)
	}
	switch params.Driver {
	case config.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(params.Username, params.Password),
			Host:   params.Host,
			Path:   "/" + params.Database,
		}
		if port != "" {
			u.Host = net.JoinHostPort(params.Host, port)
		}
		sslMode := params.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u.RawQuery = url.Values{"sslmode": {sslMode}}.Encode()
		return u.String(), nil
	case config.DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = params.Username
		cfg.Passwd = params.Password
		cfg.Net = "tcp"
		cfg.Addr = params.Host
		if port != "" {
			cfg.Addr = net.JoinHostPort(params.Host, port)
		}
		cfg.DBName = params.Database
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("driver %q is not a SQL driver", params.Driver), nil)
	}
}

func (s *SQLSource) System() models.System { return s.system }

// Close closes the pool
func (s *SQLSource) Close() error {
	return s.db.Close()
}

func (s *SQLSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewConnectionError(fmt.Sprintf("ping %s", s.system), err)
	}
	return nil
}

func (s *SQLSource) query(entityType string) (Query, error) {
	q, ok := s.queries[entityType]
	if !ok {
		return Query{}, apperrors.NewMappingGapError(entityType)
	}
	return q, nil
}

func (s *SQLSource) FetchEntities(ctx context.Context, entityType string) ([]models.EntityRecord, error) {
	q, err := s.query(entityType)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q.Select)
	if err != nil {
		return nil, apperrors.NewConnectionError(fmt.Sprintf("fetch %s from %s", entityType, s.system), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []models.EntityRecord
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", entityType, err)
		}
		rec := models.EntityRecord{Fields: make(map[string]models.Value, len(cols))}
		for i, col := range cols {
			rec.Fields[strings.ToLower(col)] = models.FromInterface(raw[i])
		}
		if v, ok := rec.Get(q.idField()); ok {
			rec.ID = v.Canonical()
		}
		if v, ok := rec.Get(q.NameField); ok {
			rec.Name = v.Canonical()
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewConnectionError(fmt.Sprintf("fetch %s from %s", entityType, s.system), err)
	}

	s.logger.WithFields(logrus.Fields{
		"system":      s.system,
		"entity_type": entityType,
		"count":       len(out),
	}).Debug("Fetched entities")
	return out, nil
}

func (s *SQLSource) WriteEntity(ctx context.Context, entityType, id string, updates map[string]models.Value) error {
	q, err := s.query(entityType)
	if err != nil {
		return err
	}
	stmt, args, err := buildUpdate(s.driver, q, id, updates)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", entityType, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s %s %s", s.system, entityType, id), nil)
	}
	return nil
}

// sqlArg converts a value into a driver argument. Decimals travel as strings.
func sqlArg(v models.Value) interface{} {
	if d, ok := v.AsNumber(); ok {
		return d.String()
	}
	return v.Interface()
}

// buildUpdate renders an UPDATE for the allow-listed columns in updates.
// Columns are emitted in field name order.
func buildUpdate(driver string, q Query, id string, updates map[string]models.Value) (string, []interface{}, error) {
	if len(updates) == 0 {
		return "", nil, apperrors.NewValidationError("no fields to update", nil)
	}
	fields := make([]string, 0, len(updates))
	for f := range updates {
		if _, ok := q.Writable[f]; !ok {
			return "", nil, apperrors.NewValidationError(fmt.Sprintf("field %q of %s is not writable", f, q.Table), nil)
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)

	placeholder := func(n int) string {
		if driver == config.DriverPostgres {
			return "$" + strconv.Itoa(n)
		}
		return "?"
	}

	sets := make([]string, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for i, f := range fields {
		sets[i] = fmt.Sprintf("%s = %s", q.Writable[f], placeholder(i+1))
		args = append(args, sqlArg(updates[f]))
	}
	args = append(args, id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", q.Table, strings.Join(sets, ", "), q.IDColumn, placeholder(len(fields)+1))
	return stmt, args, nil
}
