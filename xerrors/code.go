package xerrors

import "errors"

// codedError 为错误附加 snake_case 错误码，如 clock_regression
type codedError struct {
	code  string
	cause error
}

func (e *codedError) Error() string {
	if e.cause == nil {
		return "[" + e.code + "]"
	}
	return "[" + e.code + "] " + e.cause.Error()
}

func (e *codedError) Unwrap() error { return e.cause }

// WithCode 为 err 附加错误码，err 为 nil 时返回 nil
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, cause: err}
}

// GetCode 返回错误链上最外层的错误码，没有时返回空串
func GetCode(err error) string {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return ""
}

// HasCode 判断错误链上任意一层是否带有 code
func HasCode(err error, code string) bool {
	var ce *codedError
	for errors.As(err, &ce) {
		if ce.code == code {
			return true
		}
		err = ce.cause
	}
	return false
}
