package portal

import (
	"context"

	"github.com/medvault/medvault/internal/domain/accessrequest"
	"github.com/medvault/medvault/internal/domain/records"
)

// Dashboard is everything the patient landing page shows in one response.
type Dashboard struct {
	Records        []*records.Record              `json:"records"`
	AccessRequests []*accessrequest.AccessRequest `json:"accessRequests"`
}

type Service struct {
	records *records.Service
	access  *accessrequest.Service
}

func NewService(recs *records.Service, access *accessrequest.Service) *Service {
	return &Service{records: recs, access: access}
}

// Dashboard aggregates the patient's records and access requests.
func (s *Service) Dashboard(ctx context.Context, patientID int64) (*Dashboard, error) {
	recs, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	requests, err := s.access.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if recs == nil {
		recs = []*records.Record{}
	}
	if requests == nil {
		requests = []*accessrequest.AccessRequest{}
	}
	return &Dashboard{Records: recs, AccessRequests: requests}, nil
}
