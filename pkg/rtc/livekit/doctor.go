package livekit

import (
	"context"
	"fmt"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/svara-ai/svara/pkg/errorsx"
)

// DoctorReport holds the result of the connectivity self-test.
type DoctorReport struct {
	ActiveRooms int
}

// Doctor verifies credentials and connectivity by listing rooms through the
// RoomService API. It is run before any session is accepted.
func Doctor(ctx context.Context, cfg Config) (DoctorReport, error) {
	if cfg.URL == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return DoctorReport{}, errorsx.Wrap(
			fmt.Errorf("missing livekit url/api_key/api_secret"), errorsx.ReasonConfig)
	}
	client := lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret)
	resp, err := client.ListRooms(ctx, &livekit.ListRoomsRequest{})
	if err != nil {
		return DoctorReport{}, errorsx.Wrap(err, errorsx.ReasonRoomConnect)
	}
	return DoctorReport{ActiveRooms: len(resp.Rooms)}, nil
}
