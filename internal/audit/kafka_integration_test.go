//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"consentgate/internal/audit"
	"consentgate/pkg/testutil/containers"
	"consentgate/purpose"
)

func TestKafkaSink(t *testing.T) {
	ctx := context.Background()
	rp := containers.NewRedpandaContainer(t)

	const topic = "consent-audit-test"
	admin := kadm.NewClient(rp.NewKafkaClient(t))
	_, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	require.NoError(t, err)

	producer := rp.NewKafkaClient(t, kgo.DefaultProduceTopic(topic))
	sink, err := audit.NewKafkaSink(producer, topic)
	require.NoError(t, err)

	_, err = audit.NewKafkaSink(nil, topic)
	require.Error(t, err, "client is required")
	_, err = audit.NewKafkaSink(producer, "")
	require.Error(t, err, "topic is required")

	event := audit.Event{
		ID:        "evt-1",
		Timestamp: time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC),
		Action:    audit.ActionQueueDiscard,
		State:     "denied",
		Snapshot:  purpose.Snapshot{Preferences: true},
		Count:     4,
	}
	require.NoError(t, sink.Append(ctx, event))

	consumer := rp.NewKafkaClient(t,
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)

	deadline, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	fetches := consumer.PollFetches(deadline)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, topic, records[0].Topic)
	assert.Equal(t, string(audit.ActionQueueDiscard), string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, audit.ActionQueueDiscard, got.Action)
	assert.Equal(t, "denied", got.State)
	assert.True(t, got.Snapshot.Preferences)
	assert.Equal(t, 4, got.Count)
}
