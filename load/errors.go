package load

import (
	"errors"
	"fmt"
)

// ErrEmpty 网表中没有任何元件
var ErrEmpty = errors.New("网表中没有元件")

// FormatError 元件行格式错误
type FormatError struct {
	Line   int    // 行号,从 1 开始计算有效元件行
	Text   string // 原始行内容
	Reason string // 错误原因
}

// Error 错误信息
func (e *FormatError) Error() string {
	return fmt.Sprintf("第 %d 行: %s: %s", e.Line, e.Reason, e.Text)
}

// errorAtLine 生成带行号的格式错误
func errorAtLine(line int, text string, format string, args ...any) error {
	return &FormatError{Line: line, Text: text, Reason: fmt.Sprintf(format, args...)}
}
