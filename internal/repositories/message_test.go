package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_Append(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	msg := models.AuditMessage{
		ID:            "m1",
		TransactionID: "tx-1",
		Sender:        models.MessageSenderSystem,
		Type:          models.MessageTypeStatus,
		Text:          "Payment of 20.00 is held in escrow.",
		Timestamp:     ts,
	}

	mock.ExpectExec(sqlPattern("INSERT INTO transaction_messages")).
		WithArgs("m1", "tx-1", "system", "status", msg.Text, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Append(context.Background(), msg))

	dbErr := errors.New("connection reset")
	mock.ExpectExec(sqlPattern("INSERT INTO transaction_messages")).
		WillReturnError(dbErr)
	assert.ErrorIs(t, repo.Append(context.Background(), msg), dbErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_ListByTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	listQuery := sqlPattern("FROM transaction_messages WHERE transaction_id = $1")
	mock.ExpectQuery(sqlPattern("SELECT id, transaction_id, sender, type, text, created_at FROM transaction_messages")).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "sender", "type", "text", "created_at"}).
			AddRow("m1", "tx-1", "system", "status", "requested", ts).
			AddRow("m2", "tx-1", "system", "system", "meetup set", ts.Add(time.Minute)))

	msgs, err := repo.ListByTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "meetup set", msgs[1].Text)
	assert.Equal(t, ts, msgs[0].Timestamp)

	mock.ExpectQuery(listQuery).WithArgs("tx-2").WillReturnError(errors.New("boom"))
	msgs, err = repo.ListByTransaction(context.Background(), "tx-2")
	assert.Error(t, err)
	assert.Nil(t, msgs)

	assert.NoError(t, mock.ExpectationsWereMet())
}
