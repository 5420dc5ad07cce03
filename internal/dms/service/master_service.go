package service

import (
	"context"
	"errors"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"github.com/bitfantasy/pharma-dms/internal/dms/repository"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HospitalSpec 医院入参
type HospitalSpec struct {
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	City      string `json:"city"`
	Address   string `json:"address"`
	GSTNumber string `json:"gst_number"`
	PANNumber string `json:"pan_number"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// DoctorSpec 医生入参
type DoctorSpec struct {
	Name           string  `json:"name" binding:"required"`
	Specialization string  `json:"specialization"`
	HospitalID     *string `json:"hospital_id"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Location       string  `json:"location"`
}

// PrincipalSpec 供应商入参
type PrincipalSpec struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	GSTNumber    string `json:"gst_number"`
	PANNumber    string `json:"pan_number"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	PaymentTerms string `json:"payment_terms"`
	CreditDays   int    `json:"credit_days"`
}

// ProductSpec 产品入参
type ProductSpec struct {
	Code             string `json:"code" binding:"required"`
	Name             string `json:"name" binding:"required"`
	GenericName      string `json:"generic_name"`
	PrincipalID      string `json:"principal_id" binding:"required"`
	DosageForm       string `json:"dosage_form"`
	Strength         string `json:"strength"`
	Unit             string `json:"unit"`
	HSNCode          string `json:"hsn_code"`
	StorageCondition string `json:"storage_condition"`
	RequiresBatch    *bool  `json:"requires_batch"`
}

// MasterService 主数据维护
type MasterService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewMasterService(repos *repository.Repositories, logger *zap.Logger) *MasterService {
	return &MasterService{repos: repos, logger: logger}
}

// === 医院 ===

func (s *MasterService) CreateHospital(ctx context.Context, userID string, spec *HospitalSpec) (*entity.Hospital, error) {
	h := &entity.Hospital{
		ID:        uuid.New().String(),
		Code:      spec.Code,
		Name:      spec.Name,
		City:      spec.City,
		Address:   spec.Address,
		GSTNumber: spec.GSTNumber,
		PANNumber: spec.PANNumber,
		Email:     spec.Email,
		Phone:     spec.Phone,
		IsActive:  true,
		CreatedBy: userID,
	}
	if err := s.repos.Master.CreateHospital(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *MasterService) UpdateHospital(ctx context.Context, id string, spec *HospitalSpec) (*entity.Hospital, error) {
	h, err := s.GetHospital(ctx, id)
	if err != nil {
		return nil, err
	}
	h.Name = spec.Name
	h.City = spec.City
	h.Address = spec.Address
	h.GSTNumber = spec.GSTNumber
	h.PANNumber = spec.PANNumber
	h.Email = spec.Email
	h.Phone = spec.Phone
	if err := s.repos.Master.UpdateHospital(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *MasterService) GetHospital(ctx context.Context, id string) (*entity.Hospital, error) {
	h, err := s.repos.Master.FindHospital(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "hospital", ID: id}
		}
		return nil, err
	}
	return h, nil
}

func (s *MasterService) ListHospitals(ctx context.Context, page, pageSize int, search string) ([]entity.Hospital, int64, error) {
	return s.repos.Master.ListHospitals(ctx, page, pageSize, search)
}

// === 医生 ===

func (s *MasterService) CreateDoctor(ctx context.Context, userID string, spec *DoctorSpec) (*entity.Doctor, error) {
	if spec.HospitalID != nil {
		if _, err := s.GetHospital(ctx, *spec.HospitalID); err != nil {
			return nil, err
		}
	}
	d := &entity.Doctor{
		ID:             uuid.New().String(),
		Name:           spec.Name,
		Specialization: spec.Specialization,
		HospitalID:     spec.HospitalID,
		Email:          spec.Email,
		Phone:          spec.Phone,
		Location:       spec.Location,
		IsActive:       true,
		CreatedBy:      userID,
	}
	if err := s.repos.Master.CreateDoctor(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *MasterService) UpdateDoctor(ctx context.Context, id string, spec *DoctorSpec) (*entity.Doctor, error) {
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if spec.HospitalID != nil {
		if _, err := s.GetHospital(ctx, *spec.HospitalID); err != nil {
			return nil, err
		}
	}
	d.Name = spec.Name
	d.Specialization = spec.Specialization
	d.HospitalID = spec.HospitalID
	d.Email = spec.Email
	d.Phone = spec.Phone
	d.Location = spec.Location
	if err := s.repos.Master.UpdateDoctor(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *MasterService) GetDoctor(ctx context.Context, id string) (*entity.Doctor, error) {
	d, err := s.repos.Master.FindDoctor(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "doctor", ID: id}
		}
		return nil, err
	}
	return d, nil
}

func (s *MasterService) ListDoctors(ctx context.Context, page, pageSize int, hospitalID, search string) ([]entity.Doctor, int64, error) {
	return s.repos.Master.ListDoctors(ctx, page, pageSize, hospitalID, search)
}

// === 供应商 ===

func (s *MasterService) CreatePrincipal(ctx context.Context, userID string, spec *PrincipalSpec) (*entity.Principal, error) {
	p := &entity.Principal{
		ID:           uuid.New().String(),
		Code:         spec.Code,
		Name:         spec.Name,
		GSTNumber:    spec.GSTNumber,
		PANNumber:    spec.PANNumber,
		Email:        spec.Email,
		Phone:        spec.Phone,
		Address:      spec.Address,
		PaymentTerms: spec.PaymentTerms,
		CreditDays:   spec.CreditDays,
		IsActive:     true,
		CreatedBy:    userID,
	}
	if err := s.repos.Master.CreatePrincipal(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MasterService) UpdatePrincipal(ctx context.Context, id string, spec *PrincipalSpec) (*entity.Principal, error) {
	p, err := s.GetPrincipal(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = spec.Name
	p.GSTNumber = spec.GSTNumber
	p.PANNumber = spec.PANNumber
	p.Email = spec.Email
	p.Phone = spec.Phone
	p.Address = spec.Address
	p.PaymentTerms = spec.PaymentTerms
	p.CreditDays = spec.CreditDays
	if err := s.repos.Master.UpdatePrincipal(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MasterService) GetPrincipal(ctx context.Context, id string) (*entity.Principal, error) {
	p, err := s.repos.Master.FindPrincipal(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "principal", ID: id}
		}
		return nil, err
	}
	return p, nil
}

func (s *MasterService) ListPrincipals(ctx context.Context, page, pageSize int, search string) ([]entity.Principal, int64, error) {
	return s.repos.Master.ListPrincipals(ctx, page, pageSize, search)
}

// === 产品 ===

func (s *MasterService) CreateProduct(ctx context.Context, userID string, spec *ProductSpec) (*entity.Product, error) {
	if _, err := s.GetPrincipal(ctx, spec.PrincipalID); err != nil {
		return nil, err
	}
	unit := spec.Unit
	if unit == "" {
		unit = "pcs"
	}
	requiresBatch := true
	if spec.RequiresBatch != nil {
		requiresBatch = *spec.RequiresBatch
	}
	p := &entity.Product{
		ID:               uuid.New().String(),
		Code:             spec.Code,
		Name:             spec.Name,
		GenericName:      spec.GenericName,
		PrincipalID:      spec.PrincipalID,
		DosageForm:       spec.DosageForm,
		Strength:         spec.Strength,
		Unit:             unit,
		HSNCode:          spec.HSNCode,
		StorageCondition: spec.StorageCondition,
		RequiresBatch:    requiresBatch,
		IsActive:         true,
		CreatedBy:        userID,
	}
	if err := s.repos.Master.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MasterService) UpdateProduct(ctx context.Context, id string, spec *ProductSpec) (*entity.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = spec.Name
	p.GenericName = spec.GenericName
	p.DosageForm = spec.DosageForm
	p.Strength = spec.Strength
	if spec.Unit != "" {
		p.Unit = spec.Unit
	}
	p.HSNCode = spec.HSNCode
	p.StorageCondition = spec.StorageCondition
	if spec.RequiresBatch != nil {
		p.RequiresBatch = *spec.RequiresBatch
	}
	if err := s.repos.Master.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MasterService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.repos.Master.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "product", ID: id}
		}
		return nil, err
	}
	return p, nil
}

func (s *MasterService) ListProducts(ctx context.Context, page, pageSize int, principalID, search string) ([]entity.Product, int64, error) {
	return s.repos.Master.ListProducts(ctx, page, pageSize, principalID, search)
}
