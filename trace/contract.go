package trace

// Span 名称
const (
	SpanGenerateBatch = "idgen.generate_batch"
	SpanWaitTick      = "idgen.wait_tick"
)

// Span 属性键
const (
	AttrNodeID    = "sinteflake.node_id"
	AttrBatchSize = "sinteflake.batch_size"
	AttrWaitCause = "sinteflake.wait_cause"
)

// TracerName sinteflake 组件使用的 instrumentation scope
const TracerName = "github.com/ceyewan/sinteflake"
