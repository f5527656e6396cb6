package dto

import (
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
)

// RegisterSeriesRequest defines a new range authorised by DGII.
type RegisterSeriesRequest struct {
	DocumentType     domain.DocumentType `json:"documentType" binding:"required,fiscaldoctype"`
	Prefix           string              `json:"prefix" binding:"omitempty,max=10"` // Defaults to the document type
	StartNumber      int64               `json:"startNumber" binding:"required,min=1"`
	EndNumber        int64               `json:"endNumber" binding:"required,gtefield=StartNumber"`
	ExpirationDate   *string             `json:"expirationDate" binding:"omitempty,datetime=2006-01-02"`
	NumberWidth      *int                `json:"numberWidth" binding:"omitempty,min=1,max=18"`
	AuthorizationRef *string             `json:"authorizationRef" binding:"omitempty,max=100"`
}

// ListSeriesParams filters the series listing.
type ListSeriesParams struct {
	DocumentType string `form:"documentType" binding:"omitempty,fiscaldoctype"`
	Status       string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE EXPIRED"`
}

// SeriesResponse defines the data returned for a fiscal series.
type SeriesResponse struct {
	SeriesID         string              `json:"seriesID"`
	DocumentType     domain.DocumentType `json:"documentType"`
	Prefix           string              `json:"prefix"`
	StartNumber      int64               `json:"startNumber"`
	EndNumber        int64               `json:"endNumber"`
	CurrentNumber    int64               `json:"currentNumber"`
	Remaining        int64               `json:"remaining"`
	NumberWidth      int                 `json:"numberWidth"`
	Status           domain.SeriesStatus `json:"status"`
	ExpirationDate   string              `json:"expirationDate,omitempty"`
	AuthorizationRef string              `json:"authorizationRef,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	CreatedBy        string              `json:"createdBy"`
	LastUpdatedAt    time.Time           `json:"lastUpdatedAt"`
	LastUpdatedBy    string              `json:"lastUpdatedBy"`
}

// ListSeriesResponse wraps the list of series.
type ListSeriesResponse struct {
	Series []SeriesResponse `json:"series"`
}

// AllocateRequest asks for the next fiscal number of a document type.
type AllocateRequest struct {
	DocumentType domain.DocumentType `json:"documentType" binding:"required,fiscaldoctype"`

	// IdempotencyKey is taken from the Idempotency-Key header.
	IdempotencyKey string `json:"-"`
}

// AllocationResponse defines the data returned for an issued fiscal number.
type AllocationResponse struct {
	AllocationID   string              `json:"allocationID"`
	FiscalNumber   string              `json:"fiscalNumber"`
	SeriesID       string              `json:"seriesID"`
	DocumentType   domain.DocumentType `json:"documentType"`
	SequenceNumber int64               `json:"sequenceNumber"`
	AllocatedAt    time.Time           `json:"allocatedAt"`
	AllocatedBy    string              `json:"allocatedBy"`
}

// GetAllocationParams looks an allocation up by its idempotency key.
type GetAllocationParams struct {
	IdempotencyKey string `form:"idempotencyKey" binding:"required"`
}

// ToSeriesResponse converts a domain.FiscalSeries to SeriesResponse DTO.
func ToSeriesResponse(s *domain.FiscalSeries) SeriesResponse {
	return SeriesResponse{
		SeriesID:         s.SeriesID,
		DocumentType:     s.DocumentType,
		Prefix:           s.Prefix,
		StartNumber:      s.StartNumber,
		EndNumber:        s.EndNumber,
		CurrentNumber:    s.CurrentNumber,
		Remaining:        s.Remaining(),
		NumberWidth:      s.NumberWidth,
		Status:           s.Status,
		ExpirationDate:   FormatOptionalDate(s.ExpirationDate),
		AuthorizationRef: s.AuthorizationRef,
		CreatedAt:        s.CreatedAt,
		CreatedBy:        s.CreatedBy,
		LastUpdatedAt:    s.LastUpdatedAt,
		LastUpdatedBy:    s.LastUpdatedBy,
	}
}

// ToListSeriesResponse converts a slice of series.
func ToListSeriesResponse(series []domain.FiscalSeries) ListSeriesResponse {
	res := ListSeriesResponse{Series: make([]SeriesResponse, len(series))}
	for i, s := range series {
		res.Series[i] = ToSeriesResponse(&s)
	}
	return res
}

// ToAllocationResponse converts a domain.FiscalAllocation to AllocationResponse DTO.
func ToAllocationResponse(a *domain.FiscalAllocation) AllocationResponse {
	return AllocationResponse{
		AllocationID:   a.AllocationID,
		FiscalNumber:   a.FiscalNumber,
		SeriesID:       a.SeriesID,
		DocumentType:   a.DocumentType,
		SequenceNumber: a.SequenceNumber,
		AllocatedAt:    a.AllocatedAt,
		AllocatedBy:    a.AllocatedBy,
	}
}
