// Package generation 实现小说后台生成的核心编排逻辑
package generation

import (
	"errors"
	"fmt"
)

// ErrorKind 生成错误分类
type ErrorKind int

const (
	// KindTransient 瞬时错误（限流、超时、网络抖动），允许退避重试
	KindTransient ErrorKind = iota
	// KindContentPolicy 内容安全拦截，不可重试，终结整部小说的生成
	KindContentPolicy
	// KindFatal 结构性错误（认证失败、响应畸形），不可重试
	KindFatal
)

// String 返回分类名称
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindContentPolicy:
		return "content_policy"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error 带分类的生成错误
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// Transient 构造瞬时错误
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// ContentPolicy 构造内容安全错误
func ContentPolicy(op string, err error) *Error {
	return &Error{Kind: KindContentPolicy, Op: op, Err: err}
}

// Fatal 构造结构性错误
func Fatal(op string, err error) *Error {
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// KindOf 提取错误分类。未分类错误按 Fatal 处理：
// 适配层负责把可重试的供应商错误标为 Transient，漏标时宁可终止也不无界重试。
func KindOf(err error) ErrorKind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindFatal
}
