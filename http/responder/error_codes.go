package responder

// HTTP 状态码相关的错误码
const (
	// 4xxx - 客户端错误
	ErrCodeBadRequest       = 4000 // 请求格式错误
	ErrCodeBindFailed       = 4001 // 参数绑定错误
	ErrCodeValidationFailed = 4002 // 数据验证失败
	ErrCodeNotFound         = 4003 // 资源不存在
	ErrCodeRouteNotFound    = 4004 // 路由不存在
	ErrCodeUnknownFormat    = 4005 // 不支持的输出格式
	ErrCodeUndecodable      = 4006 // 图片无法解码
	ErrCodePayloadTooLarge  = 4007 // 请求体过大
	ErrCodeTooManyRequests  = 4009 // 请求过于频繁

	// 5xxx - 服务端错误
	ErrCodeInternalServer     = 5000 // 内部服务器错误
	ErrCodeServiceUnavailable = 5003 // 服务不可用（队列已满或已停止）
	ErrCodeExternalService    = 5005 // 外部服务错误（存储）
	ErrCodeTimeout            = 5006 // 处理超时
)

// 错误消息映射
var errorMessages = map[int]string{
	ErrCodeBadRequest:         "Bad Request",
	ErrCodeBindFailed:         "Invalid Request",
	ErrCodeValidationFailed:   "Validation Failed",
	ErrCodeNotFound:           "Resource Not Found",
	ErrCodeRouteNotFound:      "Route Not Found",
	ErrCodeUnknownFormat:      "Unknown Output Format",
	ErrCodeUndecodable:        "Cannot Decode Image",
	ErrCodePayloadTooLarge:    "Payload Too Large",
	ErrCodeTooManyRequests:    "Too Many Requests",
	ErrCodeInternalServer:     "Internal Server Error",
	ErrCodeServiceUnavailable: "Service Unavailable",
	ErrCodeExternalService:    "External Service Error",
	ErrCodeTimeout:            "Processing Timeout",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

// NewError creates a new Error with code and message
func NewError(code int, message string) Error {
	return NewErrorWithDetails(code, message, nil)
}

// NewErrorWithDetails creates a new Error with code, message and details
func NewErrorWithDetails(code int, message string, details any) Error {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Error{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Predefined errors for common scenarios
var (
	ErrBadRequest         = NewError(ErrCodeBadRequest, "")
	ErrNotFound           = NewError(ErrCodeNotFound, "")
	ErrRouteNotFound      = NewError(ErrCodeRouteNotFound, "")
	ErrPayloadTooLarge    = NewError(ErrCodePayloadTooLarge, "")
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "")
	ErrInternalServer     = NewError(ErrCodeInternalServer, "")
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "")
)
