package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

// ErrValidation marks input that failed model validation. Validator errors
// are wrapped with it so callers can match on errors.Is.
var ErrValidation = errors.New("validation failed")

type Model interface {
	TableName() string
	ColumnNames() []string
	GetID() int64
	EmptySlice() interface{}
}

// RowScanner is satisfied by both *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// RowsScanner is satisfied by *sql.Rows.
type RowsScanner interface {
	RowScanner
	Next() bool
}

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// go-playground/validator suggests using a single instance of the validator.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validator exposes the shared validator instance so request payloads are
// checked with the same custom tags as the models.
func Validator() *validator.Validate {
	return validate
}

// ValidateModel validates a model using the go-playground/validator package. It
// returns an error if the provided argument does not implement the Model
// interface.
func ValidateModel(model interface{}) error {
	m, ok := model.(Model)
	if !ok {
		return fmt.Errorf("%w: expected model, got %T", ErrValidation, model)
	}

	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// GetValsFromModel returns the writable field values of a model as a slice of
// interfaces, in the order of the model's column names. Ensure the model has
// been validated using ValidateModel before calling.
func GetValsFromModel(m Model) []interface{} {
	val := structValue(m)
	typ := val.Type()

	fieldMap := make(map[string]interface{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !isColumn(field) || isReadOnly(field) {
			continue
		}
		fieldMap[field.Tag.Get("db")] = val.Field(i).Interface()
	}

	columnNames := m.ColumnNames()
	vals := make([]interface{}, len(columnNames))
	for i, cn := range columnNames {
		vals[i] = fieldMap[cn]
	}

	return vals
}

// ScanRowToModel scans a single SQL row into a given model. It takes a pointer
// to a model and passes a slice of pointers to the model's column fields to
// the row's Scan method. The row must select the columns in the order
// returned by GetColumnNames(m, false).
func ScanRowToModel(m Model, r RowScanner) error {
	val := reflect.ValueOf(m)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("expected pointer to model, got %T", m)
	}

	return r.Scan(fieldPointers(val.Elem())...)
}

// ScanRowsToSliceOfModels scans every row into a new slice of the model's
// type. The returned value is the pointer produced by m.EmptySlice(). The
// caller still owns rows and must check rows.Err().
func ScanRowsToSliceOfModels(m Model, rows RowsScanner, expectedRows int) (interface{}, error) {
	// Obtain the slice of models using the EmptySlice method, which returns a
	// pointer to an empty slice of the model type as an interface{}
	modelsSlice := m.EmptySlice()

	sliceVal := reflect.ValueOf(modelsSlice).Elem()
	if sliceVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected slice, got %s", sliceVal.Kind())
	}

	elemType := sliceVal.Type().Elem()

	// Size the slice from the caller's guess (e.g. the limit parameter of a
	// URL query) to avoid repeated growth.
	sliceVal.Set(reflect.MakeSlice(sliceVal.Type(), 0, determineInitialCapacity(expectedRows)))

	for rows.Next() {
		model := reflect.New(elemType).Elem()
		if err := rows.Scan(fieldPointers(model)...); err != nil {
			return nil, err
		}
		sliceVal.Set(reflect.Append(sliceVal, model))
	}

	return modelsSlice, nil
}

// GetColumnNames returns the db column names of a model, in field order.
// Fields tagged db:"-" are never columns; fields tagged readOnly:"true" are
// managed by the database and skipped when excludeReadOnlyFields is set.
func GetColumnNames(m Model, excludeReadOnlyFields bool) []string {
	typ := structValue(m).Type()
	var columnNames []string

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !isColumn(field) {
			continue
		}
		if excludeReadOnlyFields && isReadOnly(field) {
			continue
		}
		columnNames = append(columnNames, field.Tag.Get("db"))
	}
	return columnNames
}

// SelectColumns returns every column of the model joined for a SELECT list,
// optionally qualified with a table alias.
func SelectColumns(m Model, alias string) string {
	cols := GetColumnNames(m, false)
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	qualified := make([]string, len(cols))
	for i, c := range cols {
		qualified[i] = alias + "." + c
	}
	return strings.Join(qualified, ", ")
}

// MapJsonTagsToDB returns a map of the model's field tags where key is JSON and value is DB
func MapJsonTagsToDB(m Model) map[string]string {
	typ := structValue(m).Type()
	tagMap := make(map[string]string)

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !isColumn(field) {
			continue
		}
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		tagMap[jsonTag] = field.Tag.Get("db")
	}
	return tagMap
}

// MapJsonTagsToType returns the Go type of each column field keyed by its JSON
// name, for converting query string values before they reach the driver.
func MapJsonTagsToType(m Model) map[string]reflect.Type {
	typ := structValue(m).Type()
	types := make(map[string]reflect.Type)

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !isColumn(field) {
			continue
		}
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		types[jsonTag] = field.Type
	}
	return types
}

func structValue(m Model) reflect.Value {
	val := reflect.ValueOf(m)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	return val
}

func fieldPointers(val reflect.Value) []interface{} {
	typ := val.Type()
	ptrs := make([]interface{}, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if !isColumn(typ.Field(i)) {
			continue
		}
		ptrs = append(ptrs, val.Field(i).Addr().Interface())
	}
	return ptrs
}

func isColumn(f reflect.StructField) bool {
	tag := f.Tag.Get("db")
	return tag != "" && tag != "-"
}

func isReadOnly(f reflect.StructField) bool {
	return f.Tag.Get("readOnly") == "true"
}

// Helper function to determine the initial capacity based on expected rows
func determineInitialCapacity(expectedRows int) int {
	switch {
	case expectedRows <= 10:
		return 10
	case expectedRows <= 25:
		return 20
	case expectedRows <= 50:
		return 35
	case expectedRows <= 100:
		return 75
	case expectedRows <= 200:
		return 150
	case expectedRows <= 500:
		return 400
	case expectedRows <= 1000:
		return 900
	default:
		return 1800
	}
}
