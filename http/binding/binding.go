package binding

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
)

type BindError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s' %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type ValidationErrors []BindError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Error())
}

// Query 使用默认的查询参数解析器绑定查询参数到结构体
func Query(r *http.Request, v any) error {
	return QueryWithParser(r, v, NewQueryParser())
}

// Body 读取完整请求体（图片原始字节）
// 超过 MaxBytesReader 限制时返回 *http.MaxBytesError
func Body(r *http.Request) ([]byte, error) {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return nil, &BindError{
			Type:    "bind_error",
			Message: "request body is empty",
		}
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, tooLarge
		}
		return nil, &BindError{
			Type:    "bind_error",
			Message: "failed to read request body: " + err.Error(),
		}
	}

	if len(body) == 0 {
		return nil, &BindError{
			Type:    "bind_error",
			Message: "request body is empty",
		}
	}
	return body, nil
}
