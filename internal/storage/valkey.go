package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/hirelens/interview-pulse/internal/session"
)

const snapshotKeyPrefix = "interview:session:"

// ValkeySnapshots keeps session snapshots in Valkey with per-status TTLs.
// A key that lapses is how an abandoned session becomes expired.
type ValkeySnapshots struct {
	client valkey.Client
}

type ValkeyOptions struct {
	Address  string
	Password string
}

func NewValkeySnapshots(ctx context.Context, opts ValkeyOptions) (*ValkeySnapshots, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:      []string{opts.Address},
		Password:         opts.Password,
		ConnWriteTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}

	return &ValkeySnapshots{client: client}, nil
}

func (v *ValkeySnapshots) Save(ctx context.Context, snap session.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.ID, err)
	}

	cmd := v.client.B().Set().Key(snapshotKeyPrefix + snap.ID).Value(string(payload))
	var built valkey.Completed
	if ttl > 0 {
		built = cmd.ExSeconds(int64(ttl.Seconds())).Build()
	} else {
		built = cmd.Build()
	}

	if err := v.client.Do(ctx, built).Error(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (v *ValkeySnapshots) Load(ctx context.Context, id string) (session.Snapshot, error) {
	res := v.client.Do(ctx, v.client.B().Get().Key(snapshotKeyPrefix+id).Build())
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return session.Snapshot{}, session.ErrNotFound
		}
		return session.Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	raw, err := res.AsBytes()
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (v *ValkeySnapshots) Close() {
	if v != nil && v.client != nil {
		v.client.Close()
	}
}
