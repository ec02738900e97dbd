// Package fleet 车辆与司机档案：登记、状态维护。
// 绑定关系不在这里改，统一走 assignment 包。
package fleet

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/models"
)

// Service 车队档案用例。
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// RegisterVehicleInput 车辆登记入参。
type RegisterVehicleInput struct {
	PlateNumber string
	Model       string
	CapacityKg  int64
	OwnerID     string
}

func (s *Service) RegisterVehicle(ctx context.Context, in RegisterVehicleInput) (*models.Vehicle, error) {
	const op = "fleet.RegisterVehicle"
	if s == nil || s.repo == nil {
		return nil, apperrors.Storage(op, errors.New("service not initialized"))
	}
	if strings.TrimSpace(in.PlateNumber) == "" {
		return nil, apperrors.Validationf(op, "plate_number is required")
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, apperrors.Validationf(op, "owner_id is required")
	}

	v := &models.Vehicle{
		ID:          uuid.NewString(),
		PlateNumber: strings.TrimSpace(in.PlateNumber),
		Model:       strings.TrimSpace(in.Model),
		CapacityKg:  in.CapacityKg,
		OwnerID:     strings.TrimSpace(in.OwnerID),
		Status:      models.VehicleAvailable,
	}
	if err := s.repo.CreateVehicle(ctx, v); err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return v, nil
}

// RegisterDriverInput 司机登记入参。
type RegisterDriverInput struct {
	Name          string
	Phone         string
	LicenseNumber string
}

func (s *Service) RegisterDriver(ctx context.Context, in RegisterDriverInput) (*models.Driver, error) {
	const op = "fleet.RegisterDriver"
	if s == nil || s.repo == nil {
		return nil, apperrors.Storage(op, errors.New("service not initialized"))
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.Validationf(op, "name is required")
	}
	if strings.TrimSpace(in.LicenseNumber) == "" {
		return nil, apperrors.Validationf(op, "license_number is required")
	}

	d := &models.Driver{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		Phone:         strings.TrimSpace(in.Phone),
		LicenseNumber: strings.TrimSpace(in.LicenseNumber),
		Status:        models.DriverOffDuty,
	}
	if err := s.repo.CreateDriver(ctx, d); err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return d, nil
}

// UpdateVehicleStatus 状态按闭集解析，未知取值报参数错误。
func (s *Service) UpdateVehicleStatus(ctx context.Context, vehicleID, status string) (*models.Vehicle, error) {
	const op = "fleet.UpdateVehicleStatus"
	st, err := models.ParseVehicleStatus(op, status)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.FindVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "vehicle", vehicleID)
		}
		return nil, apperrors.Storage(op, err)
	}
	v.Status = st
	if err := s.repo.SaveVehicle(ctx, v); err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return v, nil
}

// UpdateDriverStatus 同上。
func (s *Service) UpdateDriverStatus(ctx context.Context, driverID, status string) (*models.Driver, error) {
	const op = "fleet.UpdateDriverStatus"
	st, err := models.ParseDriverStatus(op, status)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.FindDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "driver", driverID)
		}
		return nil, apperrors.Storage(op, err)
	}
	d.Status = st
	if err := s.repo.SaveDriver(ctx, d); err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return d, nil
}

func (s *Service) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	const op = "fleet.GetVehicle"
	v, err := s.repo.FindVehicle(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "vehicle", id)
		}
		return nil, apperrors.Storage(op, err)
	}
	return v, nil
}

func (s *Service) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	const op = "fleet.GetDriver"
	d, err := s.repo.FindDriver(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "driver", id)
		}
		return nil, apperrors.Storage(op, err)
	}
	return d, nil
}
