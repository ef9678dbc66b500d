// sinteflake 命令行：本地生成与解码 ID、签发访问解码接口的 Token，以及启动 HTTP 发号服务。
//
//	sinteflake generate -n 10 --node-id 3
//	sinteflake decode 1234567890123456789
//	sinteflake token --subject ops --role decoder
//	sinteflake serve --config-path ./config
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
