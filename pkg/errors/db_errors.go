// Package errors classifies MySQL and GORM failures for the repositories.
package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DatabaseErrorType represents the type of database error.
type DatabaseErrorType int

const (
	// ErrorTypeUnknown represents an unclassified database error.
	ErrorTypeUnknown DatabaseErrorType = iota
	// ErrorTypeDuplicateKey is a unique key violation (MySQL 1062).
	ErrorTypeDuplicateKey
	// ErrorTypeInvalidJSON is a malformed JSON value (MySQL 3140-3143).
	ErrorTypeInvalidJSON
	// ErrorTypeDataTooLong is a value that does not fit its column (MySQL 1406).
	ErrorTypeDataTooLong
	// ErrorTypeNotFound is gorm.ErrRecordNotFound.
	ErrorTypeNotFound
	// ErrorTypeDeadlock is a deadlock or lock wait timeout (MySQL 1213, 1205).
	ErrorTypeDeadlock
	// ErrorTypeConnectionError is a lost or refused connection.
	ErrorTypeConnectionError
	// ErrorTypeInvalidValue is a NULL or truncated value (MySQL 1048, 1265, 1366).
	ErrorTypeInvalidValue
)

var typeNames = map[DatabaseErrorType]string{
	ErrorTypeUnknown:         "unknown",
	ErrorTypeDuplicateKey:    "duplicate_key",
	ErrorTypeInvalidJSON:     "invalid_json",
	ErrorTypeDataTooLong:     "data_too_long",
	ErrorTypeNotFound:        "not_found",
	ErrorTypeDeadlock:        "deadlock",
	ErrorTypeConnectionError: "connection",
	ErrorTypeInvalidValue:    "invalid_value",
}

// String returns the snake_case name used in log fields.
func (t DatabaseErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DatabaseErrorType(%d)", int(t))
}

// mysqlCodes maps server error numbers to a type and a message.
var mysqlCodes = map[uint16]struct {
	typ DatabaseErrorType
	msg string
}{
	1062: {ErrorTypeDuplicateKey, "duplicate key"},
	1205: {ErrorTypeDeadlock, "lock wait timeout"},
	1213: {ErrorTypeDeadlock, "deadlock detected"},
	1406: {ErrorTypeDataTooLong, "data too long for column"},
	1048: {ErrorTypeInvalidValue, "column cannot be null"},
	1265: {ErrorTypeInvalidValue, "invalid or truncated value"},
	1366: {ErrorTypeInvalidValue, "invalid or truncated value"},
	3140: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3141: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3142: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3143: {ErrorTypeInvalidJSON, "invalid JSON data"},
}

// 连接类错误的常见关键字（小写）
var connectionKeywords = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"connection lost",
	"can't connect",
	"dial tcp",
}

// DatabaseError wraps a database error with its classification.
type DatabaseError struct {
	Type         DatabaseErrorType
	OriginalErr  error
	MySQLErrCode uint16
	Message      string
}

func (e *DatabaseError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// Transient reports whether retrying the same statement may succeed.
func (e *DatabaseError) Transient() bool {
	return e.Type == ErrorTypeDeadlock || e.Type == ErrorTypeConnectionError
}

// ClassifyDBError wraps err in a DatabaseError. Already classified errors are
// returned as is.
func ClassifyDBError(err error) *DatabaseError {
	if err == nil {
		return nil
	}

	var classified *DatabaseError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DatabaseError{Type: ErrorTypeNotFound, OriginalErr: err, Message: "record not found"}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if c, ok := mysqlCodes[mysqlErr.Number]; ok {
			return &DatabaseError{Type: c.typ, OriginalErr: err, MySQLErrCode: mysqlErr.Number, Message: c.msg}
		}
		return &DatabaseError{Type: ErrorTypeUnknown, OriginalErr: err, MySQLErrCode: mysqlErr.Number, Message: "MySQL error"}
	}

	if isConnectionError(err) {
		return &DatabaseError{Type: ErrorTypeConnectionError, OriginalErr: err, Message: "database connection error"}
	}

	return &DatabaseError{Type: ErrorTypeUnknown, OriginalErr: err, Message: "unknown database error"}
}

// IsTransient reports whether err classifies as a retryable database failure.
func IsTransient(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Transient()
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range connectionKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
