package binding

import (
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// ArrayStrategy 数组解析策略
type ArrayStrategy int

const (
	// ArrayStrategyMultiple 多次传参：?presets=small&presets=large
	ArrayStrategyMultiple ArrayStrategy = iota
	// ArrayStrategyComma 逗号分隔：?presets=small,large
	ArrayStrategyComma
	// ArrayStrategyBoth 两种都支持，优先多次传参
	ArrayStrategyBoth
)

// QueryUnmarshaler 自定义查询参数解析
type QueryUnmarshaler interface {
	UnmarshalQuery(value string) error
}

var unmarshalerType = reflect.TypeOf((*QueryUnmarshaler)(nil)).Elem()

// QueryParser 查询参数解析器
type QueryParser struct {
	tagName       string
	defaultTag    string
	arrayStrategy ArrayStrategy
}

// NewQueryParser 创建新的查询参数解析器
func NewQueryParser() *QueryParser {
	return &QueryParser{
		tagName:       "query",
		defaultTag:    "default",
		arrayStrategy: ArrayStrategyBoth,
	}
}

// SetArrayStrategy 设置数组解析策略
func (qp *QueryParser) SetArrayStrategy(strategy ArrayStrategy) {
	qp.arrayStrategy = strategy
}

// Parse 解析查询参数到结构体，并执行校验
func (qp *QueryParser) Parse(values url.Values, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &BindError{
			Type:    "bind_error",
			Message: "v must be a non-nil pointer",
		}
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return &BindError{
			Type:    "bind_error",
			Message: "v must be a pointer to struct",
		}
	}

	if err := qp.parseStruct(values, rv, ""); err != nil {
		return err
	}
	return validate(v)
}

// QueryWithParser 使用自定义解析器解析查询参数
func QueryWithParser(r *http.Request, v any, parser *QueryParser) error {
	return parser.Parse(r.URL.Query(), v)
}

// parseStruct 解析结构体
func (qp *QueryParser) parseStruct(values url.Values, rv reflect.Value, prefix string) error {
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		queryName := qp.getQueryName(fieldType, prefix)
		if queryName == "-" {
			continue
		}

		// 嵌套结构体（未实现 QueryUnmarshaler 时）按 prefix. 展开
		if field.Kind() == reflect.Struct && !field.Addr().Type().Implements(unmarshalerType) {
			if err := qp.parseStruct(values, field, queryName+"."); err != nil {
				return err
			}
			continue
		}

		raw, exists := values[queryName]
		if !exists || len(raw) == 0 {
			def, ok := fieldType.Tag.Lookup(qp.defaultTag)
			if !ok {
				continue
			}
			raw = []string{def}
		}

		if err := qp.setValue(field, raw, fieldType.Name); err != nil {
			return err
		}
	}

	return nil
}

// getQueryName 获取字段的查询参数名，缺省为小写字段名
func (qp *QueryParser) getQueryName(field reflect.StructField, prefix string) string {
	tag := field.Tag.Get(qp.tagName)
	if tag == "-" {
		return "-"
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = strings.ToLower(field.Name)
	}
	return prefix + name
}

// setValue 根据字段类型设置值
func (qp *QueryParser) setValue(field reflect.Value, values []string, fieldName string) error {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return qp.setValue(field.Elem(), values, fieldName)
	}

	if field.CanAddr() && field.Addr().Type().Implements(unmarshalerType) {
		if err := field.Addr().Interface().(QueryUnmarshaler).UnmarshalQuery(values[0]); err != nil {
			return &BindError{
				Type:    "bind_error",
				Field:   fieldName,
				Message: "failed to unmarshal query: " + err.Error(),
			}
		}
		return nil
	}

	if field.Kind() == reflect.Slice {
		return qp.setSlice(field, values, fieldName)
	}
	return setScalar(field, strings.TrimSpace(values[0]), fieldName, "")
}

// setSlice 设置切片类型字段
func (qp *QueryParser) setSlice(field reflect.Value, values []string, fieldName string) error {
	var actual []string
	switch qp.arrayStrategy {
	case ArrayStrategyMultiple:
		actual = values
	case ArrayStrategyComma:
		actual = strings.Split(values[0], ",")
	default:
		if len(values) == 1 && strings.Contains(values[0], ",") {
			actual = strings.Split(values[0], ",")
		} else {
			actual = values
		}
	}

	slice := reflect.MakeSlice(field.Type(), 0, len(actual))
	for _, val := range actual {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := setScalar(elem, val, fieldName, " in array"); err != nil {
			return err
		}
		slice = reflect.Append(slice, elem)
	}
	field.Set(slice)
	return nil
}

func setScalar(field reflect.Value, value, fieldName, where string) error {
	invalid := func(kind string, err error) error {
		return &BindError{
			Type:    "bind_error",
			Field:   fieldName,
			Message: "invalid " + kind + " value" + where + ": " + err.Error(),
		}
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return invalid("integer", err)
		}
		field.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return invalid("unsigned integer", err)
		}
		field.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return invalid("float", err)
		}
		field.SetFloat(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return invalid("boolean", err)
		}
		field.SetBool(v)
	default:
		return &BindError{
			Type:    "bind_error",
			Field:   fieldName,
			Message: "unsupported field type: " + field.Kind().String(),
		}
	}
	return nil
}
