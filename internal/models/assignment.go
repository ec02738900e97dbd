package models

import "time"

// AssignmentRecord 是 assignment_records 表的 GORM 模型：
// 车辆-司机绑定关系的时间线，唯一的关系事实来源。
//
// 不变量：同一车辆、同一司机各自最多只有一条 is_active=true 的记录；
// 记录一旦关闭（EndDate 写入、IsActive=false）即不再变更，历史只增不删。
type AssignmentRecord struct {
	ID        string     `gorm:"primaryKey;size:36"`
	VehicleID string     `gorm:"index:idx_assignment_vehicle;size:36;not null"`
	DriverID  string     `gorm:"index:idx_assignment_driver;size:36;not null"`
	StartDate time.Time  `gorm:"not null"`
	EndDate   *time.Time // 关闭时写入
	IsActive  bool       `gorm:"index;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
