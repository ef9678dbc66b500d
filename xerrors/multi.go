package xerrors

import "strconv"

// multiError 按顺序收集的多个错误，Error 只展开第一个
type multiError struct {
	errs []error
}

func (m *multiError) Error() string {
	msg := m.errs[0].Error()
	if n := len(m.errs) - 1; n > 0 {
		msg += " (and " + strconv.Itoa(n) + " more errors)"
	}
	return msg
}

func (m *multiError) Unwrap() []error { return m.errs }

// Combine 合并 errs 中的非 nil 错误，只有一个时原样返回
//
// 常用于按顺序关闭多个资源后汇总错误。
func Combine(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &multiError{errs: kept}
}
