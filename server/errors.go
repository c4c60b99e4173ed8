package server

import "errors"

// 同步核心的错误分类：全部为单请求内可恢复错误，不会导致进程退出
var (
	// ErrValidation 字段缺失或格式错误（用户名/颜色为空、位置不是整数）
	ErrValidation = errors.New("validation failed")
	// ErrUnknownPlayer 对不存在的用户名执行 move
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrMalformedMessage 入站载荷无法解析为结构化消息
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownKind 消息可解析但 type 不是已知种类，同时满足 errors.Is(err, ErrMalformedMessage)
	ErrUnknownKind = errors.New("unknown message type")
)

// IsRejection 判断错误是否应当作为“拒绝”返回给请求方（而非内部错误）
func IsRejection(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownPlayer) ||
		errors.Is(err, ErrMalformedMessage)
}
