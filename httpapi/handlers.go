package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/idgen"
	"github.com/ceyewan/sinteflake/xerrors"
)

// ContentTypeMsgpack msgpack 响应的 Content-Type
const ContentTypeMsgpack = "application/x-msgpack"

// GenerateResponse POST /v1/ids 的响应
//
// JSON 中 ID 编码为十进制字符串，msgpack 中为 uint64。
type GenerateResponse struct {
	IDs []idgen.ID `json:"ids" msgpack:"ids"`
}

// DecodeResponse GET /v1/ids/:id 的响应
type DecodeResponse struct {
	ID idgen.ID `json:"id" msgpack:"id"`
	idgen.Parts
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error" msgpack:"error"`
	Code  string `json:"code,omitempty" msgpack:"code,omitempty"`
}

// requestedCount 供限流中间件按 ID 个数扣减令牌
//
// 超出 [1, MaxBatch] 的值按 1 计，请求随后由 generate 以 400 拒绝，而不是因超过 burst 被限流。
func (s *Server) requestedCount(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil || n <= 0 || n > s.cfg.MaxBatch {
		return 1
	}
	return n
}

func wantsMsgpack(c *gin.Context) bool {
	if c.Query("format") == "msgpack" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), ContentTypeMsgpack)
}

// render 按请求选择 JSON 或 msgpack
func (s *Server) render(c *gin.Context, status int, v any) {
	if !wantsMsgpack(c) {
		c.JSON(status, v)
		return
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "encode msgpack response", clog.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "encode response"})
		return
	}
	c.Data(status, ContentTypeMsgpack, data)
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	s.render(c, status, ErrorResponse{Error: err.Error(), Code: xerrors.GetCode(err)})
}

func (s *Server) generate(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil || n <= 0 || n > s.cfg.MaxBatch {
		s.fail(c, http.StatusBadRequest, xerrors.WithCode(
			xerrors.Wrapf(xerrors.ErrInvalidInput, "count must be between 1 and %d", s.cfg.MaxBatch),
			"invalid_count",
		))
		return
	}

	ctx := c.Request.Context()
	ids, err := s.gen.NextBatch(ctx, n)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case xerrors.Is(err, idgen.ErrClockRegression), ctx.Err() != nil:
			status = http.StatusServiceUnavailable
			c.Header("Retry-After", "1")
		case xerrors.Is(err, idgen.ErrTickOverflow):
			s.logger.ErrorContext(ctx, "generator exhausted its tick range", clog.Error(err))
		}
		s.fail(c, status, err)
		return
	}
	s.render(c, http.StatusOK, GenerateResponse{IDs: ids})
}

func (s *Server) decode(c *gin.Context) {
	id, err := idgen.ParseID(c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	parts, err := s.gen.Decode(id)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err)
		return
	}
	s.render(c, http.StatusOK, DecodeResponse{ID: id, Parts: parts})
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	connectors := make(map[string]bool, len(s.checks))
	for _, conn := range s.checks {
		healthy := conn.IsHealthy()
		connectors[conn.Name()] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{
		"status":     http.StatusText(status),
		"node_id":    s.gen.NodeID(),
		"connectors": connectors,
	})
}
