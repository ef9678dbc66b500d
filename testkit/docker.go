package testkit

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// skipIfNoDocker Docker 守护进程不可达时跳过测试
func skipIfNoDocker(t *testing.T) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
}
