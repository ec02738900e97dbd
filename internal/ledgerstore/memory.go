package ledgerstore

import (
	"context"
	"sync"

	"github.com/FreightLink/FreightLink/internal/models"
)

// MemoryStore 内存版账本存储：互斥锁整体串行化，fn 在状态副本上执行，
// 成功才替换，天然满足“要么全写要么不写”。用于单测与本地联调
//（与 GORM 版实现同一 Store 接口，参考 TurboDriver 的 inmemory/redis 双实现）。
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	vehicles    map[string]models.Vehicle
	drivers     map[string]models.Driver
	assignments map[string]models.AssignmentRecord
	accounts    map[string]models.WalletAccount // key: account ID
	ownerIndex  map[string]string               // owner ID -> account ID
	txns        []models.WalletTransaction
	bookings    map[string]models.Booking
	payments    map[string]models.Payment
	bookingPay  map[string]string // booking ID -> payment ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		vehicles:    map[string]models.Vehicle{},
		drivers:     map[string]models.Driver{},
		assignments: map[string]models.AssignmentRecord{},
		accounts:    map[string]models.WalletAccount{},
		ownerIndex:  map[string]string{},
		bookings:    map[string]models.Booking{},
		payments:    map[string]models.Payment{},
		bookingPay:  map[string]string{},
	}}
}

func (st *memoryState) clone() *memoryState {
	c := &memoryState{
		vehicles:    make(map[string]models.Vehicle, len(st.vehicles)),
		drivers:     make(map[string]models.Driver, len(st.drivers)),
		assignments: make(map[string]models.AssignmentRecord, len(st.assignments)),
		accounts:    make(map[string]models.WalletAccount, len(st.accounts)),
		ownerIndex:  make(map[string]string, len(st.ownerIndex)),
		txns:        make([]models.WalletTransaction, len(st.txns)),
		bookings:    make(map[string]models.Booking, len(st.bookings)),
		payments:    make(map[string]models.Payment, len(st.payments)),
		bookingPay:  make(map[string]string, len(st.bookingPay)),
	}
	for k, v := range st.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range st.drivers {
		c.drivers[k] = v
	}
	for k, v := range st.assignments {
		c.assignments[k] = v
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.ownerIndex {
		c.ownerIndex[k] = v
	}
	copy(c.txns, st.txns)
	for k, v := range st.bookings {
		c.bookings[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = v
	}
	for k, v := range st.bookingPay {
		c.bookingPay[k] = v
	}
	return c
}

func (s *MemoryStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	next := s.state.clone()
	if err := fn(&memoryTx{st: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

type memoryTx struct {
	st *memoryState
}

func (t *memoryTx) VehicleForUpdate(id string) (*models.Vehicle, error) {
	v, ok := t.st.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (t *memoryTx) DriverForUpdate(id string) (*models.Driver, error) {
	d, ok := t.st.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (t *memoryTx) SaveVehicle(v *models.Vehicle) error {
	t.st.vehicles[v.ID] = *v
	return nil
}

func (t *memoryTx) SaveDriver(d *models.Driver) error {
	t.st.drivers[d.ID] = *d
	return nil
}

func (t *memoryTx) ActiveAssignmentByVehicle(vehicleID string) (*models.AssignmentRecord, error) {
	for _, rec := range t.st.assignments {
		if rec.VehicleID == vehicleID && rec.IsActive {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) ActiveAssignmentByDriver(driverID string) (*models.AssignmentRecord, error) {
	for _, rec := range t.st.assignments {
		if rec.DriverID == driverID && rec.IsActive {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) CreateAssignment(rec *models.AssignmentRecord) error {
	t.st.assignments[rec.ID] = *rec
	return nil
}

func (t *memoryTx) SaveAssignment(rec *models.AssignmentRecord) error {
	t.st.assignments[rec.ID] = *rec
	return nil
}

func (t *memoryTx) AssignmentsByVehicle(vehicleID string) ([]models.AssignmentRecord, error) {
	var out []models.AssignmentRecord
	for _, rec := range t.st.assignments {
		if rec.VehicleID == vehicleID {
			out = append(out, rec)
		}
	}
	sortAssignments(out)
	return out, nil
}

func (t *memoryTx) AssignmentsByDriver(driverID string) ([]models.AssignmentRecord, error) {
	var out []models.AssignmentRecord
	for _, rec := range t.st.assignments {
		if rec.DriverID == driverID {
			out = append(out, rec)
		}
	}
	sortAssignments(out)
	return out, nil
}

func sortAssignments(recs []models.AssignmentRecord) {
	// start_date 降序，与 GORM 实现保持一致
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].StartDate.After(recs[j-1].StartDate); j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}

func (t *memoryTx) AccountByOwnerForUpdate(ownerID string) (*models.WalletAccount, error) {
	id, ok := t.st.ownerIndex[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	a := t.st.accounts[id]
	return &a, nil
}

func (t *memoryTx) CreateAccount(a *models.WalletAccount) error {
	t.st.accounts[a.ID] = *a
	t.st.ownerIndex[a.OwnerID] = a.ID
	return nil
}

func (t *memoryTx) SaveAccount(a *models.WalletAccount) error {
	t.st.accounts[a.ID] = *a
	t.st.ownerIndex[a.OwnerID] = a.ID
	return nil
}

func (t *memoryTx) CreateWalletTransaction(txn *models.WalletTransaction) error {
	t.st.txns = append(t.st.txns, *txn)
	return nil
}

func (t *memoryTx) WalletTransactionsByAccount(accountID string) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	for _, txn := range t.st.txns {
		if txn.AccountID == accountID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (t *memoryTx) BookingForUpdate(id string) (*models.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memoryTx) CreateBooking(b *models.Booking) error {
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *memoryTx) SaveBooking(b *models.Booking) error {
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *memoryTx) PaymentForUpdate(id string) (*models.Payment, error) {
	p, ok := t.st.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memoryTx) PaymentByBookingForUpdate(bookingID string) (*models.Payment, error) {
	id, ok := t.st.bookingPay[bookingID]
	if !ok {
		return nil, nil
	}
	p := t.st.payments[id]
	return &p, nil
}

func (t *memoryTx) CreatePayment(p *models.Payment) error {
	t.st.payments[p.ID] = *p
	t.st.bookingPay[p.BookingID] = p.ID
	return nil
}

func (t *memoryTx) SavePayment(p *models.Payment) error {
	t.st.payments[p.ID] = *p
	t.st.bookingPay[p.BookingID] = p.ID
	return nil
}
