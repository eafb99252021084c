package payments

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadlinehq/leadline/internal/contact"
)

type fakeContacts struct {
	byID    map[string]contact.Contact
	byEmail map[string]contact.Contact
	marked  []string
}

func (f *fakeContacts) Get(ctx context.Context, id string) (contact.Contact, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return contact.Contact{}, contact.ErrContactNotFound
}

func (f *fakeContacts) GetByEmail(ctx context.Context, email string) (contact.Contact, error) {
	if c, ok := f.byEmail[email]; ok {
		return c, nil
	}
	return contact.Contact{}, contact.ErrContactNotFound
}

func (f *fakeContacts) MarkStudent(ctx context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

func TestHandleEventByReferenceID(t *testing.T) {
	contacts := &fakeContacts{byID: map[string]contact.Contact{
		"c1": {ID: "c1"},
	}}
	svc := NewService(slog.Default(), contacts)

	raw := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "client_reference_id": "c1"}}
	}`)
	require.NoError(t, svc.HandleEvent(context.Background(), raw))
	assert.Equal(t, []string{"c1"}, contacts.marked)
}

func TestHandleEventFallsBackToEmail(t *testing.T) {
	contacts := &fakeContacts{byEmail: map[string]contact.Contact{
		"ana@example.com": {ID: "c2"},
	}}
	svc := NewService(slog.Default(), contacts)

	raw := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "customer_details": {"email": "ana@example.com"}}}
	}`)
	require.NoError(t, svc.HandleEvent(context.Background(), raw))
	assert.Equal(t, []string{"c2"}, contacts.marked)
}

func TestHandleEventUnknownContactIsDropped(t *testing.T) {
	contacts := &fakeContacts{}
	svc := NewService(slog.Default(), contacts)

	raw := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_3", "client_reference_id": "missing", "customer_email": "nobody@example.com"}}
	}`)
	require.NoError(t, svc.HandleEvent(context.Background(), raw))
	assert.Empty(t, contacts.marked)
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	contacts := &fakeContacts{byID: map[string]contact.Contact{"c1": {ID: "c1"}}}
	svc := NewService(slog.Default(), contacts)

	raw := []byte(`{"type": "invoice.paid", "data": {"object": {"client_reference_id": "c1"}}}`)
	require.NoError(t, svc.HandleEvent(context.Background(), raw))
	assert.Empty(t, contacts.marked)
}

func TestHandleEventMalformedPayload(t *testing.T) {
	svc := NewService(slog.Default(), &fakeContacts{})
	assert.Error(t, svc.HandleEvent(context.Background(), []byte("{broken")))
}
