// Package payments resolves completed checkout events onto the contact
// ledger and upgrades the payer to student.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leadlinehq/leadline/internal/contact"
)

const EventCheckoutCompleted = "checkout.session.completed"

type checkoutEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			CustomerEmail     string `json:"customer_email"`
			CustomerDetails   struct {
				Email string `json:"email"`
			} `json:"customer_details"`
		} `json:"object"`
	} `json:"data"`
}

type contactStore interface {
	Get(ctx context.Context, id string) (contact.Contact, error)
	GetByEmail(ctx context.Context, email string) (contact.Contact, error)
	MarkStudent(ctx context.Context, id string) error
}

type Service struct {
	contacts contactStore
	logger   *slog.Logger
}

func NewService(logger *slog.Logger, contacts contactStore) *Service {
	return &Service{
		contacts: contacts,
		logger:   logger.With(slog.String("service", "payments")),
	}
}

// HandleEvent processes one verified webhook event. Contact resolution tries
// the client reference id first, then the customer email. An event that
// resolves to no contact is logged and dropped; the caller still answers 200
// so the provider stops retrying.
func (s *Service) HandleEvent(ctx context.Context, raw []byte) error {
	var event checkoutEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("parse payment event: %w", err)
	}
	if event.Type != EventCheckoutCompleted {
		s.logger.Debug("ignoring payment event", slog.String("type", event.Type))
		return nil
	}

	session := event.Data.Object
	email := strings.TrimSpace(session.CustomerDetails.Email)
	if email == "" {
		email = strings.TrimSpace(session.CustomerEmail)
	}

	resolved, err := s.resolveContact(ctx, session.ClientReferenceID, email)
	if errors.Is(err, contact.ErrContactNotFound) {
		s.logger.Warn("payment for unknown contact",
			slog.String("session_id", session.ID),
			slog.String("reference", session.ClientReferenceID),
			slog.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.contacts.MarkStudent(ctx, resolved.ID); err != nil {
		return fmt.Errorf("mark student: %w", err)
	}
	s.logger.Info("contact upgraded to student",
		slog.String("contact_id", resolved.ID),
		slog.String("session_id", session.ID))
	return nil
}

func (s *Service) resolveContact(ctx context.Context, referenceID, email string) (contact.Contact, error) {
	if strings.TrimSpace(referenceID) != "" {
		c, err := s.contacts.Get(ctx, referenceID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, contact.ErrContactNotFound) {
			return contact.Contact{}, err
		}
	}
	if email != "" {
		return s.contacts.GetByEmail(ctx, email)
	}
	return contact.Contact{}, contact.ErrContactNotFound
}
