package repository

import (
	"testing"

	"camly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateIdempotentGiftCollapsesDuplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewGiftRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	mk := func(receipt string) *models.Gift {
		return &models.Gift{
			SenderID: alice.ID, ReceiverID: bob.ID, Amount: 200,
			ReceiptID: receipt, ContentHash: "same-day-hash",
		}
	}

	var first *models.Gift
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		var created bool
		first, created, err = repo.CreateIdempotentTx(tx, mk("gift-1"))
		require.True(t, created)
		return err
	}))

	// The identical submission lands on the unique (sender, content hash)
	// index instead of inserting a second row.
	var second *models.Gift
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		var created bool
		second, created, err = repo.CreateIdempotentTx(tx, mk("gift-2"))
		require.False(t, created)
		return err
	}))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "gift-1", second.ReceiptID)

	var rows int64
	require.NoError(t, db.Model(&models.Gift{}).Where("sender_id = ?", alice.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestCreateIdempotentGiftDistinctHashesBothInsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewGiftRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	for i, hash := range []string{"hash-a", "hash-b"} {
		g := &models.Gift{
			SenderID: alice.ID, ReceiverID: bob.ID, Amount: 100,
			ReceiptID: "gift-" + hash, ContentHash: hash,
		}
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			_, created, err := repo.CreateIdempotentTx(tx, g)
			assert.True(t, created, "insert %d", i)
			return err
		}))
	}

	var rows int64
	require.NoError(t, db.Model(&models.Gift{}).Where("sender_id = ?", alice.ID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}
