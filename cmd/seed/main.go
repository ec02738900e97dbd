package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/FreightLink/FreightLink/internal/account"
	"github.com/FreightLink/FreightLink/internal/assignment"
	"github.com/FreightLink/FreightLink/internal/booking"
	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/common/config"
	"github.com/FreightLink/FreightLink/internal/common/db"
	"github.com/FreightLink/FreightLink/internal/common/logger"
	"github.com/FreightLink/FreightLink/internal/fleet"
	"github.com/FreightLink/FreightLink/internal/ledgerstore"
	"github.com/FreightLink/FreightLink/internal/notify"
	"github.com/FreightLink/FreightLink/internal/wallet"
)

// 开发环境造数工具：
// - 注册 customer / owner / driver 三个参与方（各自带钱包）
// - 登记一辆车 + 一个司机并建立绑定
// - 给 customer 钱包充值，并走一遍 创建运单 -> 确认（扣款托管） 流程
// 参与方按用户名去重可重复执行；车辆/司机没有业务去重键，重跑前先清库。

var (
	configPath = flag.String("config", "configs/marketplace-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	log, err := logger.New(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format, "stdout", "")
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

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

	ctx := context.Background()
	store := ledgerstore.NewGormStore(gdb)
	wallets := wallet.NewLedger(store)
	assignments := assignment.NewLedger(store)
	bookings := booking.NewService(store, assignments, wallets, notify.Nop{})
	fleetSvc := fleet.NewService(fleet.NewRepo(gdb))
	participants := account.NewRepo(gdb)
	accounts := account.NewService(participants, wallets, cfg.Auth)

	customer := mustRegister(ctx, log, accounts, participants, account.RegisterInput{
		Username: "demo-customer", Password: "demo123456",
		DisplayName: "演示货主", Roles: []string{account.RoleCustomer},
	})
	owner := mustRegister(ctx, log, accounts, participants, account.RegisterInput{
		Username: "demo-owner", Password: "demo123456",
		DisplayName: "演示车主", Roles: []string{account.RoleOwner},
	})
	mustRegister(ctx, log, accounts, participants, account.RegisterInput{
		Username: "demo-driver", Password: "demo123456",
		DisplayName: "演示司机", Roles: []string{account.RoleDriver},
	})

	v, err := fleetSvc.RegisterVehicle(ctx, fleet.RegisterVehicleInput{
		PlateNumber: "沪A88888",
		Model:       "重卡 6x4",
		CapacityKg:  25000,
		OwnerID:     owner,
	})
	if err != nil {
		log.Fatalf("seed vehicle: %v", err)
	}
	d, err := fleetSvc.RegisterDriver(ctx, fleet.RegisterDriverInput{
		Name:          "演示司机",
		Phone:         "13800000000",
		LicenseNumber: "A2-0001",
	})
	if err != nil {
		log.Fatalf("seed driver: %v", err)
	}
	if _, err := assignments.Assign(ctx, v.ID, d.ID, time.Now()); err != nil {
		log.Fatalf("seed assignment: %v", err)
	}

	// 充值并走一遍 创建 -> 确认 流程，验证扣款托管链路
	if _, err := wallets.Credit(ctx, customer, 100_000, "seed top-up", "seed"); err != nil {
		log.Fatalf("seed top-up: %v", err)
	}
	b, err := bookings.Create(ctx, booking.CreateInput{
		CustomerID:       customer,
		CargoDescription: "演示货物 10 吨",
		CargoWeightKg:    10000,
		PickupAddress:    "上海市浦东新区",
		DropoffAddress:   "苏州市工业园区",
		BaseFareCents:    48_000,
		SurchargeCents:   2_000,
		AcceptTerms:      true,
	})
	if err != nil {
		log.Fatalf("seed booking: %v", err)
	}
	if _, err := bookings.Confirm(ctx, b.ID); err != nil {
		log.Fatalf("seed confirm: %v", err)
	}

	bal, err := wallets.Balance(ctx, customer)
	if err != nil {
		log.Fatalf("seed balance: %v", err)
	}
	log.Infof("seed done: booking=%s customer_balance=%d", b.BookingNumber, bal)
}

// mustRegister 注册参与方；已存在时复用既有记录。返回参与方 ID。
func mustRegister(ctx context.Context, log logger.Logger, accounts *account.Service, repo *account.Repo, in account.RegisterInput) string {
	p, err := accounts.Register(ctx, in)
	if err == nil {
		return p.ID
	}
	if !apperrors.IsConflict(err) {
		log.Fatalf("seed register %s: %v", in.Username, err)
	}
	log.Infof("participant %s already exists, skip", in.Username)
	existing, aerr := repo.FindByUsername(ctx, in.Username)
	if aerr != nil {
		log.Fatalf("seed lookup %s: %v", in.Username, aerr)
	}
	return existing.ID
}
