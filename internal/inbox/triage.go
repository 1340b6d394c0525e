package inbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/zombor/receipt-inbox/internal/routing"
)

// Categorize records the labels of a message, assigns the agent whose
// skills cover them and marks the message categorized. A message whose
// labels no agent handles is categorized without an agent.
func (s *Service) Categorize(ctx context.Context, id string, labels routing.Labels) (*Message, error) {
	labels.Industry = strings.TrimSpace(labels.Industry)
	labels.Category = strings.TrimSpace(labels.Category)
	if labels.Industry == "" || labels.Category == "" {
		return nil, fmt.Errorf("%w: industry and category are required", ErrInvalidLabels)
	}

	msg, err := s.db.GetMessage(id)
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}

	msg.Labels = &labels
	msg.AssignedAgent = ""
	if agent, ok := s.directory.Assign(labels); ok {
		msg.AssignedAgent = agent.ID
	} else {
		s.logger.Warn("No agent for skill", "message_id", id, "skill", labels.Skill())
	}
	msg.Status = StatusCategorized
	msg.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveMessage(msg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}
	return msg, nil
}

// TicketChange reports a ticket update
type TicketChange struct {
	MessageID string `json:"id"`
	OldTicket Ticket `json:"old_ticket"`
	NewTicket Ticket `json:"new_ticket"`
}

// UpdateTicket sets the ticket state of a message
func (s *Service) UpdateTicket(ctx context.Context, id string, ticket Ticket) (*TicketChange, error) {
	if !ticket.valid() {
		return nil, fmt.Errorf("%w: %q (supported: new, open, closed)", ErrInvalidTicket, ticket)
	}

	msg, err := s.db.GetMessage(id)
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}

	change := &TicketChange{MessageID: id, OldTicket: msg.Ticket, NewTicket: ticket}
	msg.Ticket = ticket
	msg.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveMessage(msg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}
	return change, nil
}
