package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamSource reads configuration values from a NATS JetStream key/value bucket.
type JetStreamSource struct {
	conn   *nats.Conn
	bucket jetstream.KeyValue
}

var _ KeyValueSource = (*JetStreamSource)(nil)

// OpenJetStreamSource connects to cfg.URL and binds to the existing cfg.Bucket.
func OpenJetStreamSource(ctx context.Context, cfg DiscoveryConfig) (KeyValueSource, error) {
	conn, err := nats.Connect(cfg.URL, nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucket, err := js.KeyValue(ctx, cfg.Bucket)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open bucket %s: %w", cfg.Bucket, err)
	}

	return &JetStreamSource{
		conn:   conn,
		bucket: bucket,
	}, nil
}

// Get returns the value stored under key.
func (s *JetStreamSource) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(entry.Value()), true, nil
}

// Close closes the NATS connection.
func (s *JetStreamSource) Close() error {
	s.conn.Close()
	return nil
}
