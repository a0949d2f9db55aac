//go:build protogen

package grpcserver

import (
	"context"

	"github.com/nayeem-islam/linguadesk/libs/db"
	directoryv1 "github.com/nayeem-islam/linguadesk/protos/gen/directory/v1"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/storage"
	"google.golang.org/grpc"
)

type server struct {
	directoryv1.UnimplementedDirectoryServiceServer
	pool *db.Pool
	repo *storage.Repository
}

func Register(grpcServer *grpc.Server, pool *db.Pool, repo *storage.Repository) {
	directoryv1.RegisterDirectoryServiceServer(grpcServer, &server{pool: pool, repo: repo})
}

// GetSchoolProfile serves the per-tenant grid configuration. Unknown schools
// get the seeded defaults rather than an error so the schedule side always
// has bounds to render.
func (s *server) GetSchoolProfile(ctx context.Context, req *directoryv1.SchoolProfileRequest) (*directoryv1.SchoolProfileResponse, error) {
	resp := &directoryv1.SchoolProfileResponse{
		SchoolId:        req.GetSchoolId(),
		Timezone:        "UTC",
		DayStartMinute:  480,
		DayEndMinute:    1320,
		SlotStepMinutes: 30,
	}
	if s.repo == nil || req.GetSchoolId() == "" {
		return resp, nil
	}

	p, err := s.repo.GetOrCreateProfile(ctx, req.GetSchoolId())
	if err != nil {
		return resp, nil
	}
	resp.Name = p.Name
	if p.Timezone != "" {
		resp.Timezone = p.Timezone
	}
	if p.DayEndMinute > p.DayStartMinute {
		resp.DayStartMinute = int32(p.DayStartMinute)
		resp.DayEndMinute = int32(p.DayEndMinute)
	}
	if p.SlotStepMinutes > 0 {
		resp.SlotStepMinutes = int32(p.SlotStepMinutes)
	}
	return resp, nil
}
