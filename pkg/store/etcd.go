package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/log"
)

// EtcdStore implements Store on an etcd cluster.
type EtcdStore struct {
	client *clientv3.Client
	logger zerolog.Logger
}

// NewEtcdStore connects to the given etcd endpoints.
func NewEtcdStore(endpoints []string) (*EtcdStore, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errdefs.Unavailable(err, "failed to connect to etcd %v", endpoints)
	}
	return &EtcdStore{
		client: cli,
		logger: log.WithComponent("store"),
	}, nil
}

// Put writes value under key.
func (s *EtcdStore) Put(ctx context.Context, key, value string) error {
	if _, err := s.client.Put(ctx, key, value); err != nil {
		return classify(err, "put %s", key)
	}
	return nil
}

// Get returns the value stored under key.
func (s *EtcdStore) Get(ctx context.Context, key string) (string, error) {
	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return "", classify(err, "get %s", key)
	}
	if len(resp.Kvs) == 0 {
		return "", errdefs.NotFound("key %s not found", key)
	}
	return string(resp.Kvs[0].Value), nil
}

// GetPrefix returns all pairs under prefix in key order.
func (s *EtcdStore) GetPrefix(ctx context.Context, prefix string) ([]KV, error) {
	resp, err := s.client.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, classify(err, "get prefix %s", prefix)
	}
	kvs := make([]KV, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		kvs = append(kvs, KV{Key: string(kv.Key), Value: string(kv.Value)})
	}
	return kvs, nil
}

// Delete removes key. Absent keys are not an error.
func (s *EtcdStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Delete(ctx, key); err != nil {
		return classify(err, "delete %s", key)
	}
	return nil
}

// CompareAndSwap writes value only if the current value equals expected.
// An empty expected means create-if-absent.
func (s *EtcdStore) CompareAndSwap(ctx context.Context, key, expected, value string) (bool, error) {
	var cmp clientv3.Cmp
	if expected == "" {
		cmp = clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
	} else {
		cmp = clientv3.Compare(clientv3.Value(key), "=", expected)
	}

	resp, err := s.client.Txn(ctx).
		If(cmp).
		Then(clientv3.OpPut(key, value)).
		Commit()
	if err != nil {
		return false, classify(err, "cas %s", key)
	}
	return resp.Succeeded, nil
}

// Watch streams changes under prefix starting after fromRev. The watch
// survives reconnects; on a compacted revision it re-lists the prefix and
// resumes from the list revision.
func (s *EtcdStore) Watch(ctx context.Context, prefix string, fromRev int64) (<-chan Event, error) {
	out := make(chan Event, 64)

	go func() {
		defer close(out)
		rev := fromRev

		for ctx.Err() == nil {
			opts := []clientv3.OpOption{clientv3.WithPrefix()}
			if rev > 0 {
				opts = append(opts, clientv3.WithRev(rev+1))
			}
			wch := s.client.Watch(clientv3.WithRequireLeader(ctx), prefix, opts...)

			compacted := false
			for wresp := range wch {
				if err := wresp.Err(); err != nil {
					if err == rpctypes.ErrCompacted {
						s.logger.Warn().Str("prefix", prefix).Int64("rev", rev).
							Msg("watch revision compacted, re-listing prefix")
						compacted = true
						break
					}
					s.logger.Warn().Err(err).Str("prefix", prefix).Msg("watch error, reconnecting")
					break
				}
				for _, ev := range wresp.Events {
					e := Event{
						Key:      string(ev.Kv.Key),
						Value:    string(ev.Kv.Value),
						Revision: ev.Kv.ModRevision,
					}
					switch ev.Type {
					case clientv3.EventTypePut:
						e.Type = EventPut
					case clientv3.EventTypeDelete:
						e.Type = EventDelete
					}
					rev = ev.Kv.ModRevision

					select {
					case out <- e:
					case <-ctx.Done():
						return
					}
				}
			}

			if compacted {
				listRev, ok := s.relist(ctx, prefix, out)
				if !ok {
					return
				}
				rev = listRev
				continue
			}

			// Transport loss: back off briefly before re-watching
			// from the last observed revision.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// relist replays the current contents of prefix as Put events and returns
// the store revision the caller should resume watching from.
func (s *EtcdStore) relist(ctx context.Context, prefix string, out chan<- Event) (int64, bool) {
	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		s.logger.Error().Err(err).Str("prefix", prefix).Msg("failed to re-list after compaction")
		return 0, ctx.Err() == nil
	}
	for _, kv := range resp.Kvs {
		select {
		case out <- Event{Type: EventPut, Key: string(kv.Key), Value: string(kv.Value), Revision: kv.ModRevision}:
		case <-ctx.Done():
			return 0, false
		}
	}
	return resp.Header.Revision, true
}

// Close releases the etcd client.
func (s *EtcdStore) Close() error {
	return s.client.Close()
}

// classify maps an etcd client error onto the domain taxonomy. Everything
// the client surfaces here is transport- or quorum-related, hence
// Unavailable; context cancellation passes through as Internal so callers
// do not retry their own shutdown.
func classify(err error, format string, args ...interface{}) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return errdefs.Internal(err, format, args...)
	}
	return errdefs.Unavailable(err, format, args...)
}

func isRetryable(err error) bool {
	return errdefs.IsUnavailable(err)
}
