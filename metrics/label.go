package metrics

// Label 指标标签
//
// 标签值应保持低基数：node_id、route、outcome 可以，单个 ID 或请求 ID 不可以。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
//
//	counter.Inc(ctx, metrics.L("outcome", "success"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
