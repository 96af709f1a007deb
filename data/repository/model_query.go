package repository

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"events-calendar/data/models"
)

// maxLimit caps a single page of results.
const maxLimit = 1000

// filterOperators maps a query key suffix to its SQL operator. A key without
// a known suffix is an equality test.
var filterOperators = []struct {
	suffix string
	op     string
}{
	{"_ne", "!="},
	{"_lte", "<="},
	{"_gte", ">="},
	{"_lt", "<"},
	{"_gt", ">"},
	{"_contains", "LIKE"},
	{"_anyOf", "IN"},
}

// reservedParams control ordering and paging rather than filtering.
var reservedParams = map[string]bool{"sortBy": true, "limit": true, "offset": true}

var (
	timeType = reflect.TypeOf(time.Time{})

	// likeEscaper makes a _contains value match literally; backslash is
	// Postgres' default LIKE escape character.
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// clauseBuilder accumulates the WHERE conditions of a listing query together
// with their positional arguments.
type clauseBuilder struct {
	columns    map[string]string
	types      map[string]reflect.Type
	conditions []string
	args       []interface{}
}

// next binds v to the next positional parameter and returns its placeholder.
func (b *clauseBuilder) next(v interface{}) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *clauseBuilder) column(field string) (string, error) {
	col, ok := b.columns[field]
	if !ok || col == "" {
		return "", fmt.Errorf("invalid query parameter: %s", field)
	}
	return col, nil
}

// convert parses a raw query value into the Go type of field so the driver
// never receives text for a numeric or timestamp column.
func (b *clauseBuilder) convert(field, raw string) (interface{}, error) {
	typ := b.types[field]
	if typ == nil {
		return raw, nil
	}

	switch {
	case typ == timeType:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid value for %s: %q is not a date", field, raw)
	case typ.Kind() >= reflect.Int && typ.Kind() <= reflect.Int64:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q is not a number", field, raw)
		}
		return n, nil
	case typ.Kind() == reflect.Float32 || typ.Kind() == reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q is not a number", field, raw)
		}
		return f, nil
	case typ.Kind() == reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q is not a boolean", field, raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// filter adds the condition described by one query parameter, e.g.
// title_contains=run or creator_anyOf=1,2.
func (b *clauseBuilder) filter(key, value string) error {
	field, op := key, "="
	for _, fo := range filterOperators {
		if strings.HasSuffix(key, fo.suffix) {
			field, op = strings.TrimSuffix(key, fo.suffix), fo.op
			break
		}
	}

	col, err := b.column(field)
	if err != nil {
		return err
	}

	switch op {
	case "IN":
		if value == "" {
			return fmt.Errorf("invalid value for %s: empty list", key)
		}
		items := strings.Split(value, ",")
		phs := make([]string, len(items))
		for i, item := range items {
			v, err := b.convert(field, item)
			if err != nil {
				return err
			}
			phs[i] = b.next(v)
		}
		b.conditions = append(b.conditions, fmt.Sprintf("%s IN (%s)", col, strings.Join(phs, ",")))
	case "LIKE":
		if typ := b.types[field]; typ != nil && typ.Kind() != reflect.String {
			return fmt.Errorf("invalid query parameter: %s only applies to text fields", key)
		}
		b.conditions = append(b.conditions, fmt.Sprintf("%s LIKE %s", col, b.next("%"+likeEscaper.Replace(value)+"%")))
	default:
		v, err := b.convert(field, value)
		if err != nil {
			return err
		}
		b.conditions = append(b.conditions, fmt.Sprintf("%s %s %s", col, op, b.next(v)))
	}
	return nil
}

// buildQueryClauses turns listing query parameters into the WHERE, ORDER BY
// and LIMIT/OFFSET tail of a SELECT over m's table, along with the values for
// its placeholders. Parameter names are the model's JSON field names. Paging
// applies only when limit or offset is given.
func buildQueryClauses(queryParams map[string]string, m models.Model) (string, []interface{}, error) {
	b := &clauseBuilder{
		columns: models.MapJsonTagsToDB(m),
		types:   models.MapJsonTagsToType(m),
	}

	keys := make([]string, 0, len(queryParams))
	for key := range queryParams {
		if !reservedParams[key] {
			keys = append(keys, key)
		}
	}
	// sorted so the same parameters always produce the same statement
	sort.Strings(keys)
	for _, key := range keys {
		if err := b.filter(key, queryParams[key]); err != nil {
			return "", nil, err
		}
	}

	orderBy, err := b.orderBy(queryParams["sortBy"])
	if err != nil {
		return "", nil, err
	}
	limit, offset, err := pagination(queryParams)
	if err != nil {
		return "", nil, err
	}

	parts := make([]string, 0, 4)
	if len(b.conditions) > 0 {
		parts = append(parts, "WHERE "+strings.Join(b.conditions, " AND "))
	}
	parts = append(parts, orderBy)
	if limit != nil {
		parts = append(parts, "LIMIT "+b.next(*limit))
	}
	if offset != nil {
		parts = append(parts, "OFFSET "+b.next(*offset))
	}

	return strings.Join(parts, " "), b.args, nil
}

// orderBy reads sortBy=field or sortBy=-field; the default is id ascending.
func (b *clauseBuilder) orderBy(sortBy string) (string, error) {
	dir := "ASC"
	if strings.HasPrefix(sortBy, "-") {
		dir, sortBy = "DESC", sortBy[1:]
	}
	if sortBy == "" {
		sortBy = "id"
	}

	col, err := b.column(sortBy)
	if err != nil {
		return "", fmt.Errorf("invalid sort value: %v", sortBy)
	}
	return "ORDER BY " + col + " " + dir, nil
}

// pagination returns nil for a bound the caller did not set.
func pagination(queryParams map[string]string) (limit, offset *int, err error) {
	if l, ok := queryParams["limit"]; ok {
		n, err := strconv.Atoi(l)
		if err != nil {
			return nil, nil, fmt.Errorf("pagination err; limit must be a number: %v", err)
		}
		if n < 0 {
			return nil, nil, fmt.Errorf("pagination err; limit and offset must not be negative")
		}
		n = min(n, maxLimit)
		limit = &n
	}
	if o, ok := queryParams["offset"]; ok {
		n, err := strconv.Atoi(o)
		if err != nil {
			return nil, nil, fmt.Errorf("pagination err; offset must be a number: %v", err)
		}
		if n < 0 {
			return nil, nil, fmt.Errorf("pagination err; limit and offset must not be negative")
		}
		offset = &n
	}
	return limit, offset, nil
}

// expectedRows sizes the result slice from the requested page, if any.
func expectedRows(queryParams map[string]string) int {
	limit, _, err := pagination(queryParams)
	if err != nil || limit == nil {
		return 0
	}
	return *limit
}
