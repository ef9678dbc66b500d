package config

import (
	"encoding"
	"reflect"
	"strings"

	"github.com/ceyewan/sinteflake/xerrors"
)

// bindKeys 返回 schema 中所有叶子字段的 mapstructure 路径，如 idgen.key
//
// viper 的 AutomaticEnv 只对已知的 key 生效，只出现在环境变量里的 key 需要先注册，
// 否则 AllSettings 与 Unmarshal 都看不到它们。
func bindKeys(schema any) []string {
	t := reflect.TypeOf(schema)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	collectKeys(t, "", &keys)
	return keys
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		// time.Time 与实现了 TextUnmarshaler 的结构体按单个值处理
		isStruct := ft.Kind() == reflect.Struct && !reflect.PointerTo(ft).Implements(textUnmarshalerType)

		if isStruct && (strings.Contains(opts, "squash") || (f.Anonymous && name == "")) {
			collectKeys(ft, prefix, keys)
			continue
		}
		if name == "" {
			name = f.Name
		}
		key := strings.ToLower(prefix + name)
		if isStruct {
			collectKeys(ft, key+".", keys)
			continue
		}
		*keys = append(*keys, key)
	}
}

// bindEnv 为 schema 的每个叶子 key 注册环境变量，名称为 <PREFIX>_<KEY>，点号换成下划线
func (l *viperLoader) bindEnv() error {
	for _, key := range bindKeys(l.schema) {
		if err := l.v.BindEnv(key); err != nil {
			return xerrors.Wrapf(xerrors.ErrInvalidInput, "bind env for %s: %v", key, err)
		}
	}
	return nil
}
