package datastore

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/diamondadamsteven/violin-engine/internal/errors"
)

const defaultBatchSize = 200

// BulkInsert group-inserts a homogeneous row sequence in statement
// batches of defaultBatchSize rows. rows must be a slice of a single row struct type. Empty input
// is a no-op — callers scan and call this once per row type per tick.
func (s *DataStore) BulkInsert(ctx context.Context, rows interface{}, statementName string) error {
	rv := reflect.ValueOf(rows)
	if rv.Kind() != reflect.Slice || rv.Len() == 0 {
		return nil
	}

	tx := s.DB.WithContext(ctx).CreateInBatches(rows, defaultBatchSize)
	if tx.Error != nil {
		return errors.Newf("bulk insert failed: %v", tx.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("statement", statementName).
			Context("row_count", rv.Len()).
			Build()
	}
	return nil
}

// CallProcedureNoResult invokes a stored procedure that returns no result
// set — used for load/method-complete/finalize notifications.
func (s *DataStore) CallProcedureNoResult(ctx context.Context, name string, args ...interface{}) error {
	sql, values := buildCall(name, args)
	if err := s.DB.WithContext(ctx).Exec(sql, values...).Error; err != nil {
		return errors.Newf("stored procedure %s failed: %v", name, err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("statement", name).
			Build()
	}
	return nil
}

// CallProcedureSingleRow invokes a stored procedure expected to return at
// most one row, scanning it into dest (a pointer to a struct or map).
func (s *DataStore) CallProcedureSingleRow(ctx context.Context, name string, dest interface{}, args ...interface{}) error {
	sql, values := buildCall(name, args)
	if err := s.DB.WithContext(ctx).Raw(sql, values...).Scan(dest).Error; err != nil {
		return errors.Newf("stored procedure %s failed: %v", name, err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("statement", name).
			Build()
	}
	return nil
}

// CallProcedureMultipleRows invokes a stored procedure expected to return
// zero or more rows, scanning them into dest (a pointer to a slice).
func (s *DataStore) CallProcedureMultipleRows(ctx context.Context, name string, dest interface{}, args ...interface{}) error {
	sql, values := buildCall(name, args)
	if err := s.DB.WithContext(ctx).Raw(sql, values...).Scan(dest).Error; err != nil {
		return errors.Newf("stored procedure %s failed: %v", name, err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("statement", name).
			Build()
	}
	return nil
}

// buildCall renders "CALL name(?, ?, ...)" with the given positional
// arguments, matching the mysql CALL syntax.
func buildCall(name string, args []interface{}) (string, []interface{}) {
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = "?"
	}
	sql := fmt.Sprintf("CALL %s(%s)", name, strings.Join(placeholders, ", "))
	return sql, args
}
