// Package ledgerstore 是四个核心账本（车辆司机绑定、钱包、运单、支付）共享的
// 事务存储层。每个用例通过 Store.Atomically 拿到一个事务视图 Tx，
// 多步写要么全部提交要么全部回滚；带 ForUpdate 后缀的读取在 GORM 实现里
// 对应行级锁，保证同一账户/同一绑定槽位/同一笔支付上的操作串行化。
package ledgerstore

import (
	"context"
	"errors"

	"github.com/FreightLink/FreightLink/internal/models"
)

// ErrNotFound 记录不存在。service 层负责包装成带实体上下文的业务错误。
var ErrNotFound = errors.New("ledgerstore: record not found")

// Store 账本存储。实现：GORM/MySQL（生产）与内存版（测试、本地联调）。
type Store interface {
	// Atomically 执行一个事务单元。fn 返回错误则整体回滚。
	// 任何组件都不得跨调用缓存余额/active 绑定，一律在事务内重新读取。
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}

// Tx 事务内的类型化访问接口。
type Tx interface {
	// 车辆 / 司机
	VehicleForUpdate(id string) (*models.Vehicle, error)
	DriverForUpdate(id string) (*models.Driver, error)
	SaveVehicle(v *models.Vehicle) error
	SaveDriver(d *models.Driver) error

	// 绑定记录。Active* 在无 active 记录时返回 (nil, nil)。
	ActiveAssignmentByVehicle(vehicleID string) (*models.AssignmentRecord, error)
	ActiveAssignmentByDriver(driverID string) (*models.AssignmentRecord, error)
	CreateAssignment(rec *models.AssignmentRecord) error
	SaveAssignment(rec *models.AssignmentRecord) error
	AssignmentsByVehicle(vehicleID string) ([]models.AssignmentRecord, error)
	AssignmentsByDriver(driverID string) ([]models.AssignmentRecord, error)

	// 钱包
	AccountByOwnerForUpdate(ownerID string) (*models.WalletAccount, error)
	CreateAccount(a *models.WalletAccount) error
	SaveAccount(a *models.WalletAccount) error
	CreateWalletTransaction(t *models.WalletTransaction) error
	WalletTransactionsByAccount(accountID string) ([]models.WalletTransaction, error)

	// 运单
	BookingForUpdate(id string) (*models.Booking, error)
	CreateBooking(b *models.Booking) error
	SaveBooking(b *models.Booking) error

	// 支付。PaymentByBookingForUpdate 在无记录时返回 (nil, nil)。
	PaymentForUpdate(id string) (*models.Payment, error)
	PaymentByBookingForUpdate(bookingID string) (*models.Payment, error)
	CreatePayment(p *models.Payment) error
	SavePayment(p *models.Payment) error
}
