package ledgerstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/FreightLink/FreightLink/internal/models"
)

// GormStore 基于 GORM/MySQL 的账本存储实现。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate 建表/补列（服务启动时调用一次）。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Vehicle{},
		&models.Driver{},
		&models.AssignmentRecord{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.Booking{},
		&models.Payment{},
	)
}

func (s *GormStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledgerstore: db is nil")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{tx: tx})
	})
}

type gormTx struct {
	tx *gorm.DB
}

// forUpdate SELECT ... FOR UPDATE，同一行上的并发事务在此串行化。
func (t *gormTx) forUpdate() *gorm.DB {
	return t.tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (t *gormTx) VehicleForUpdate(id string) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := t.forUpdate().Where("id = ?", id).First(&v).Error; err != nil {
		return nil, mapErr(err)
	}
	return &v, nil
}

func (t *gormTx) DriverForUpdate(id string) (*models.Driver, error) {
	var d models.Driver
	if err := t.forUpdate().Where("id = ?", id).First(&d).Error; err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (t *gormTx) SaveVehicle(v *models.Vehicle) error { return t.tx.Save(v).Error }
func (t *gormTx) SaveDriver(d *models.Driver) error   { return t.tx.Save(d).Error }

func (t *gormTx) ActiveAssignmentByVehicle(vehicleID string) (*models.AssignmentRecord, error) {
	var rec models.AssignmentRecord
	err := t.forUpdate().Where("vehicle_id = ? AND is_active = ?", vehicleID, true).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *gormTx) ActiveAssignmentByDriver(driverID string) (*models.AssignmentRecord, error) {
	var rec models.AssignmentRecord
	err := t.forUpdate().Where("driver_id = ? AND is_active = ?", driverID, true).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *gormTx) CreateAssignment(rec *models.AssignmentRecord) error {
	return t.tx.Create(rec).Error
}

func (t *gormTx) SaveAssignment(rec *models.AssignmentRecord) error {
	return t.tx.Save(rec).Error
}

func (t *gormTx) AssignmentsByVehicle(vehicleID string) ([]models.AssignmentRecord, error) {
	var recs []models.AssignmentRecord
	err := t.tx.Where("vehicle_id = ?", vehicleID).Order("start_date DESC").Find(&recs).Error
	return recs, err
}

func (t *gormTx) AssignmentsByDriver(driverID string) ([]models.AssignmentRecord, error) {
	var recs []models.AssignmentRecord
	err := t.tx.Where("driver_id = ?", driverID).Order("start_date DESC").Find(&recs).Error
	return recs, err
}

func (t *gormTx) AccountByOwnerForUpdate(ownerID string) (*models.WalletAccount, error) {
	var a models.WalletAccount
	if err := t.forUpdate().Where("owner_id = ?", ownerID).First(&a).Error; err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (t *gormTx) CreateAccount(a *models.WalletAccount) error {
	return t.tx.Create(a).Error
}

func (t *gormTx) SaveAccount(a *models.WalletAccount) error {
	return t.tx.Save(a).Error
}

func (t *gormTx) CreateWalletTransaction(txn *models.WalletTransaction) error {
	return t.tx.Create(txn).Error
}

func (t *gormTx) WalletTransactionsByAccount(accountID string) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	err := t.tx.Where("account_id = ?", accountID).Order("created_at ASC").Find(&txns).Error
	return txns, err
}

func (t *gormTx) BookingForUpdate(id string) (*models.Booking, error) {
	var b models.Booking
	if err := t.forUpdate().Where("id = ?", id).First(&b).Error; err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func (t *gormTx) CreateBooking(b *models.Booking) error { return t.tx.Create(b).Error }
func (t *gormTx) SaveBooking(b *models.Booking) error   { return t.tx.Save(b).Error }

func (t *gormTx) PaymentForUpdate(id string) (*models.Payment, error) {
	var p models.Payment
	if err := t.forUpdate().Where("id = ?", id).First(&p).Error; err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (t *gormTx) PaymentByBookingForUpdate(bookingID string) (*models.Payment, error) {
	var p models.Payment
	err := t.forUpdate().Where("booking_id = ?", bookingID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *gormTx) CreatePayment(p *models.Payment) error { return t.tx.Create(p).Error }
func (t *gormTx) SavePayment(p *models.Payment) error   { return t.tx.Save(p).Error }
