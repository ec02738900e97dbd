package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// 说明：
// 规划里网关是 “Kong/Nginx + gRPC-Gateway”。
// 当前仓库还没有业务 proto（只有 health），因此这里先提供一个最小可运行的 HTTP 入口骨架：
// - /healthz:  网关自身健康检查
// - /readyz:   探测后端 marketplace-service 的 gRPC health
// 后续接入 grpc-gateway 时：
// 1) 在 internal/api/proto 下补齐业务 proto，并添加 google.api.http 注解
// 2) 用 protoc 生成 gateway handlers
// 3) 在这里初始化 grpc-gateway mux，把 HTTP 映射到后端 gRPC（并可配合 Consul 解析）

var (
	listenAddr  = flag.String("listen", ":8080", "HTTP listen address")
	backendAddr = flag.String("backend", "localhost:50051", "marketplace-service gRPC address")
)

func main() {
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		status := checkBackend(r.Context(), *backendAddr)
		if status != "SERVING" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"backend": *backendAddr,
			"status":  status,
		})
	})

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Printf("api-gateway listening on %s\n", *listenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}

// checkBackend 调用后端的 gRPC health check。
func checkBackend(ctx context.Context, addr string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "UNREACHABLE"
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return "UNREACHABLE"
	}
	return resp.GetStatus().String()
}
