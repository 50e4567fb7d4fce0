package domainmap_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/pkg/domainmap"
)

func activeOwners(ids ...int64) domainmap.OwnerDirectory {
	return domainmap.OwnerDirectoryFunc(func(_ context.Context, id int64) (bool, error) {
		for _, a := range ids {
			if a == id {
				return true, nil
			}
		}
		return false, nil
	})
}

func TestTransferDomain(t *testing.T) {
	t.Parallel()

	t.Run("moves ownership and keeps status", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{}, domainmap.WithOwnerDirectory(activeOwners(1, 2)))
		m := e.approved(t, 1, "example.com")

		got, err := e.mgr.TransferDomain(context.Background(), domainmap.TransferInput{
			MappingID:  m.ID,
			NewOwnerID: 2,
			Actor:      "admin@platform",
			Reason:     "store sold",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.OwnerID)
		assert.Equal(t, domainmap.StatusApproved, got.Status)

		logs, err := e.mgr.TransferHistory(context.Background(), m.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, int64(1), logs[0].OldOwnerID)
		assert.Equal(t, int64(2), logs[0].NewOwnerID)
		assert.Equal(t, "admin@platform", logs[0].Actor)
		assert.Equal(t, "store sold", logs[0].Reason)

		ev := e.events.last()
		assert.Equal(t, domainmap.EventTransferred, ev.Name)
		assert.ElementsMatch(t, []int64{1, 2}, ev.OwnerIDs)
	})

	t.Run("target at quota keeps the original owner", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{MaxDomainsPerOwner: 1}, domainmap.WithOwnerDirectory(activeOwners(1, 2)))
		m := e.verified(t, 1, "example.com")
		e.add(t, 2, "full.example.com")

		_, err := e.mgr.TransferDomain(context.Background(), domainmap.TransferInput{MappingID: m.ID, NewOwnerID: 2, Actor: "admin"})
		require.ErrorIs(t, err, domainmap.ErrLimitExceeded)

		stored, err := e.mgr.Get(context.Background(), m.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.OwnerID)
		assert.Equal(t, domainmap.StatusVerified, stored.Status)

		logs, err := e.mgr.TransferHistory(context.Background(), m.ID)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("inactive owner", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{}, domainmap.WithOwnerDirectory(activeOwners(1)))
		m := e.add(t, 1, "example.com")

		_, err := e.mgr.TransferDomain(context.Background(), domainmap.TransferInput{MappingID: m.ID, NewOwnerID: 3})
		require.ErrorIs(t, err, domainmap.ErrOwnerInactive)
		require.ErrorIs(t, err, domainmap.ErrValidation)
	})

	t.Run("directory failure", func(t *testing.T) {
		t.Parallel()

		dir := domainmap.OwnerDirectoryFunc(func(context.Context, int64) (bool, error) {
			return false, errors.New("tenant service down")
		})
		e := newEnv(t, domainmap.Config{}, domainmap.WithOwnerDirectory(dir))
		m := e.add(t, 1, "example.com")

		_, err := e.mgr.TransferDomain(context.Background(), domainmap.TransferInput{MappingID: m.ID, NewOwnerID: 3})
		require.ErrorIs(t, err, domainmap.ErrExternalService)
	})

	t.Run("same owner and missing mapping", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{})
		m := e.add(t, 1, "example.com")

		_, err := e.mgr.TransferDomain(context.Background(), domainmap.TransferInput{MappingID: m.ID, NewOwnerID: 1})
		require.ErrorIs(t, err, domainmap.ErrSameOwner)

		_, err = e.mgr.TransferDomain(context.Background(), domainmap.TransferInput{MappingID: "nope", NewOwnerID: 2})
		require.ErrorIs(t, err, domainmap.ErrNotFound)
	})
}

func TestTransferRequests(t *testing.T) {
	t.Parallel()

	t.Run("one pending request per requester", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{})
		m := e.approved(t, 1, "example.com")
		ctx := context.Background()

		_, err := e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 2})
		require.ErrorIs(t, err, domainmap.ErrReasonRequired)

		req, err := e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 2, Reason: "bought it"})
		require.NoError(t, err)
		assert.Equal(t, domainmap.TransferPending, req.Status)
		assert.Equal(t, int64(1), req.FromOwnerID)

		_, err = e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 2, Reason: "again"})
		require.ErrorIs(t, err, domainmap.ErrConflict)

		// A different requester may file their own.
		_, err = e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 3, Reason: "me too"})
		require.NoError(t, err)

		_, err = e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 1, Reason: "mine"})
		require.ErrorIs(t, err, domainmap.ErrSameOwner)
	})

	t.Run("approve performs the transfer", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{})
		m := e.approved(t, 1, "example.com")
		ctx := context.Background()

		req, err := e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 2, Reason: "merger"})
		require.NoError(t, err)

		got, err := e.mgr.ApproveTransferRequest(ctx, req.ID, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.OwnerID)

		stored, err := e.reg.GetTransferRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domainmap.TransferApproved, stored.Status)
		assert.Equal(t, "owner-1", stored.ResolvedBy)
		assert.NotNil(t, stored.ResolvedAt)

		logs, err := e.mgr.TransferHistory(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "merger", logs[0].Reason)

		_, err = e.mgr.ApproveTransferRequest(ctx, req.ID, "owner-1")
		require.ErrorIs(t, err, domainmap.ErrState)

		// Resolved requests no longer block a new one.
		_, err = e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 3, Reason: "next"})
		require.NoError(t, err)
	})

	t.Run("approve at quota leaves the request pending", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{MaxDomainsPerOwner: 1})
		m := e.add(t, 1, "example.com")
		e.add(t, 2, "mine.example.com")
		ctx := context.Background()

		req, err := e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 2, Reason: "x"})
		require.NoError(t, err)

		_, err = e.mgr.ApproveTransferRequest(ctx, req.ID, "admin")
		require.ErrorIs(t, err, domainmap.ErrLimitExceeded)

		stored, err := e.reg.GetTransferRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domainmap.TransferPending, stored.Status)
	})

	t.Run("reject", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{})
		m := e.add(t, 1, "example.com")
		ctx := context.Background()

		req, err := e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 2, Reason: "x"})
		require.NoError(t, err)

		_, err = e.mgr.RejectTransferRequest(ctx, req.ID, "owner-1", "")
		require.ErrorIs(t, err, domainmap.ErrValidation)

		got, err := e.mgr.RejectTransferRequest(ctx, req.ID, "owner-1", "not for sale")
		require.NoError(t, err)
		assert.Equal(t, domainmap.TransferRejected, got.Status)
		assert.Equal(t, "not for sale", got.RejectionReason)

		_, err = e.mgr.RejectTransferRequest(ctx, req.ID, "owner-1", "again")
		require.ErrorIs(t, err, domainmap.ErrTransferNotPending)

		list, err := e.mgr.ListTransferRequests(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		stored, err := e.mgr.Get(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.OwnerID)
	})

	t.Run("deleting the mapping drops its requests", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{})
		m := e.add(t, 1, "shop.example.com")
		ctx := context.Background()

		stale, err := e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: m.ID, RequesterID: 7, Reason: "x"})
		require.NoError(t, err)
		require.NoError(t, e.mgr.DeleteDomain(ctx, m.ID))

		_, err = e.reg.GetTransferRequest(ctx, stale.ID)
		require.ErrorIs(t, err, domainmap.ErrTransferNotFound)

		readded := e.add(t, 2, "shop.example.com")
		req, err := e.mgr.RequestTransfer(ctx, domainmap.RequestTransferInput{MappingID: readded.ID, RequesterID: 7, Reason: "again"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), req.FromOwnerID)
	})

	t.Run("unknown request", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, domainmap.Config{})
		_, err := e.mgr.ApproveTransferRequest(context.Background(), "missing", "x")
		require.ErrorIs(t, err, domainmap.ErrNotFound)
	})
}
