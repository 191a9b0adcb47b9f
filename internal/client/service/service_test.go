package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/internal/client/repository"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Client{}))
	require.NoError(t, conn.Exec(`CREATE TABLE invoices (id INTEGER PRIMARY KEY, client_id INTEGER NOT NULL)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
	return svc, conn
}

func TestCreateClient(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	client, err := svc.Create(ctx, domain.CreateClientRequest{
		Name:  "  Acme Corp ",
		Email: "Billing@Acme.test",
		Phone: "555-0101",
	})
	require.NoError(t, err)
	assert.NotZero(t, client.ID)
	assert.Equal(t, "Acme Corp", client.Name)
	assert.Equal(t, "billing@acme.test", client.Email)
	require.NotNil(t, client.Phone)
	assert.Equal(t, "555-0101", *client.Phone)
	assert.Nil(t, client.Address)

	got, err := svc.GetByID(ctx, client.ID.String())
	require.NoError(t, err)
	assert.Equal(t, client.Name, got.Name)
}

func TestCreateClientValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateClientRequest{Name: "A", Email: "a@b.test"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "Acme", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestUpdateClientPartial(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	client, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Acme", Email: "a@acme.test", Address: "1 Road"})
	require.NoError(t, err)

	newName := "Acme Ltd"
	empty := ""
	updated, err := svc.Update(ctx, domain.UpdateClientRequest{ID: client.ID.String(), Name: &newName, Address: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", updated.Name)
	assert.Equal(t, "a@acme.test", updated.Email)
	assert.Nil(t, updated.Address)

	_, err = svc.Update(ctx, domain.UpdateClientRequest{ID: "12345"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListClientsNewestFirstWithPaging(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	names := []string{"Alpha", "Bravo", "Charlie"}
	for _, name := range names {
		_, err := svc.Create(ctx, domain.CreateClientRequest{Name: name, Email: name + "@x.test"})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListClientRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Clients, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Charlie", first.Clients[0].Name)

	second, err := svc.List(ctx, domain.ListClientRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Clients, 1)
	assert.Equal(t, "Alpha", second.Clients[0].Name)
	assert.False(t, second.HasMore)

	filtered, err := svc.List(ctx, domain.ListClientRequest{Name: "rav"})
	require.NoError(t, err)
	require.Len(t, filtered.Clients, 1)
	assert.Equal(t, "Bravo", filtered.Clients[0].Name)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestDeleteClientWithInvoicesIsRejected(t *testing.T) {
	svc, conn := setupService(t)
	ctx := context.Background()

	client, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Acme", Email: "a@acme.test"})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`INSERT INTO invoices (id, client_id) VALUES (?, ?)`, 1, client.ID).Error)

	err = svc.Delete(ctx, client.ID.String())
	assert.ErrorIs(t, err, domain.ErrClientHasInvoices)

	require.NoError(t, conn.Exec(`DELETE FROM invoices`).Error)
	require.NoError(t, svc.Delete(ctx, client.ID.String()))

	_, err = svc.GetByID(ctx, client.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "bogus"), domain.ErrInvalidID)
}
