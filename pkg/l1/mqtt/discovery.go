package mqtt

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/pidctl.go/pkg/l1"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Discover collects the retained metadata of devices announced by
// bridges, sorted by device ID. It returns when timeout elapses.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) ([]l1.DeviceInfo, error) {
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	infoCh := make(chan l1.DeviceInfo, 16)
	sub := q.Sub(MetaTopic("+"), func(topic string, payload []byte) {
		if len(payload) == 0 {
			return
		}
		info := l1.DeviceInfo{ID: strings.TrimSuffix(topic, "/meta")}
		if err := json.Unmarshal(payload, &info.Meta); err != nil {
			glog.Warningf("invalid meta of %s: %v", info.ID, err)
			return
		}
		select {
		case infoCh <- info:
		case <-time.After(timeout):
		}
	})
	defer sub.Close()

	found := make(map[string]l1.DeviceInfo)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case info := <-infoCh:
			found[info.ID] = info
		case <-deadline.C:
			res := make([]l1.DeviceInfo, 0, len(found))
			for _, info := range found {
				res = append(res, info)
			}
			sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
			return res, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
