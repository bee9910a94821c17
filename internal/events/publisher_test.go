package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"wallet-service/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		w := &recordingWriter{}
		p := &KafkaPublisher{writer: w, logger: zaptest.NewLogger(t)}

		err := p.PublishTransactionEvent(t.Context(), &domain.TransactionEvent{
			Event:     domain.EventDepositCompleted,
			Reference: "TXN_1",
			UserID:    "usr_1",
			Rail:      domain.RailFiat,
			Amount:    1000,
			Balance:   "1000",
		})
		require.NoError(t, err)
		require.Len(t, w.msgs, 1)
		require.Equal(t, "usr_1", string(w.msgs[0].Key))

		var got domain.TransactionEvent
		require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
		require.Equal(t, "TXN_1", got.Reference)
		require.Equal(t, int64(1000), got.Amount)
		require.False(t, got.OccurredAt.IsZero())
	})

	t.Run("fail, writer error", func(t *testing.T) {
		p := &KafkaPublisher{writer: &recordingWriter{err: errors.New("broker down")}, logger: zaptest.NewLogger(t)}
		err := p.PublishTransactionEvent(t.Context(), &domain.TransactionEvent{Event: domain.EventDepositCompleted, UserID: "usr_1"})
		require.Error(t, err)
	})
}
