// Package tracing 初始化 FreightLink 服务的 Jaeger 链路追踪，
// 与 server 包的 tracing 拦截器配合透传 span 上下文。
package tracing

import (
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

const defaultAgentHostPort = "localhost:6831"

// InitTracer 构建常量采样的 Jaeger Tracer 并设为全局。
// sampler 取值 0.0-1.0，越界时回落为全采样；endpoint 为空时连本地 agent。
func InitTracer(serviceName, endpoint string, sampler float64) (opentracing.Tracer, io.Closer, error) {
	if endpoint == "" {
		endpoint = defaultAgentHostPort
	}
	if sampler <= 0 || sampler > 1 {
		sampler = 1.0
	}

	cfg := &jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: sampler,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           true,
			LocalAgentHostPort: endpoint,
		},
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaeger.StdLogger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init jaeger tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}
