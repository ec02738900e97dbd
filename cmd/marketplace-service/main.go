package main

import (
	"flag"
	"fmt"

	"github.com/FreightLink/FreightLink/internal/account"
	"github.com/FreightLink/FreightLink/internal/assignment"
	"github.com/FreightLink/FreightLink/internal/booking"
	"github.com/FreightLink/FreightLink/internal/common/config"
	"github.com/FreightLink/FreightLink/internal/common/db"
	"github.com/FreightLink/FreightLink/internal/common/logger"
	"github.com/FreightLink/FreightLink/internal/common/server"
	"github.com/FreightLink/FreightLink/internal/common/tracing"
	"github.com/FreightLink/FreightLink/internal/fleet"
	"github.com/FreightLink/FreightLink/internal/ledgerstore"
	"github.com/FreightLink/FreightLink/internal/notify"
	"github.com/FreightLink/FreightLink/internal/payment"
	"github.com/FreightLink/FreightLink/internal/wallet"
	"google.golang.org/grpc"
)

var (
	configPath = flag.String("config", "configs/marketplace-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.New(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库并迁移账本表
	gdb, err := db.NewMySQL(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := ledgerstore.AutoMigrate(gdb); err != nil {
		log.Fatalf("failed to migrate ledger tables: %v", err)
	}
	if err := gdb.AutoMigrate(&account.Participant{}); err != nil {
		log.Fatalf("failed to migrate participant table: %v", err)
	}

	// 组装核心账本服务
	store := ledgerstore.NewGormStore(gdb)
	notifier := notify.NewLogNotifier(log)

	wallets := wallet.NewLedger(store)
	assignments := assignment.NewLedger(store)
	bookings := booking.NewService(store, assignments, wallets, notifier)
	escrow := payment.NewEscrow(store, wallets, notifier)
	fleetSvc := fleet.NewService(fleet.NewRepo(gdb))
	accounts := account.NewService(account.NewRepo(gdb), wallets, cfg.Auth)

	log.Infof("core ledgers ready: booking=%T escrow=%T fleet=%T account=%T",
		bookings, escrow, fleetSvc, accounts)

	// 启动统一的 gRPC 服务模板
	if err := server.RunGRPCServer(cfg, log, func(s *grpc.Server) error {
		// TODO: 业务 proto 就绪后在这里注册 marketplace 的 gRPC 服务
		// pb.RegisterMarketplaceServer(s, marketplacegrpc.NewServer(bookings, escrow, ...))
		return nil
	}); err != nil {
		log.Fatalf("marketplace-service exited with error: %v", err)
	}
}
