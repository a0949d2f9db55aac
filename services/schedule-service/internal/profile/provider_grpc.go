//go:build protogen

package profile

import (
	"context"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/grpcx"
	directoryv1 "github.com/nayeem-islam/linguadesk/protos/gen/directory/v1"
)

// SchoolProfile is the school-wide configuration the snapshot builder needs:
// the display timezone and the bookable day bounds.
type SchoolProfile struct {
	SchoolID        string
	Name            string
	Timezone        string
	DayStartMinute  int
	DayEndMinute    int
	SlotStepMinutes int
}

type Provider interface {
	GetSchoolProfile(ctx context.Context, schoolID string) (SchoolProfile, error)
}

type grpcProvider struct {
	client directoryv1.DirectoryServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: directoryv1.NewDirectoryServiceClient(conn)}, nil
}

func (p *grpcProvider) GetSchoolProfile(ctx context.Context, schoolID string) (SchoolProfile, error) {
	resp, err := p.client.GetSchoolProfile(ctx, &directoryv1.SchoolProfileRequest{SchoolId: schoolID})
	if err != nil {
		return SchoolProfile{}, err
	}
	return SchoolProfile{
		SchoolID:        resp.GetSchoolId(),
		Name:            resp.GetName(),
		Timezone:        resp.GetTimezone(),
		DayStartMinute:  int(resp.GetDayStartMinute()),
		DayEndMinute:    int(resp.GetDayEndMinute()),
		SlotStepMinutes: int(resp.GetSlotStepMinutes()),
	}, nil
}
