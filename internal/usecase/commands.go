package usecase

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"
)

// CommandKind identifies a user action routed through Dispatch.
type CommandKind string

const (
	CommandAddSourceEntries CommandKind = "add_source_entries"
	CommandRemoveLine       CommandKind = "remove_line"
	CommandEditLine         CommandKind = "edit_line"
	CommandApplyRule        CommandKind = "apply_rule"
	CommandReset            CommandKind = "reset"
	CommandTriggerMatching  CommandKind = "trigger_matching"
)

// Command is one user action on a session.
type Command interface {
	Kind() CommandKind
}

// AddSourceEntriesCommand matches source entries by id.
type AddSourceEntriesCommand struct {
	EntryIDs     []string
	RuleID       string
	AllowPartial bool
}

// RemoveLineCommand drops a line.
type RemoveLineCommand struct {
	Index int
}

// EditLineCommand changes one field of a line.
type EditLineCommand struct {
	Index int
	Field LineField
	Value any
}

// ApplyRuleCommand applies a reconcile model by id.
type ApplyRuleCommand struct {
	RuleID string
}

// ResetCommand reseeds the working set.
type ResetCommand struct{}

// TriggerMatchingCommand runs the matching rules.
type TriggerMatchingCommand struct{}

func (AddSourceEntriesCommand) Kind() CommandKind { return CommandAddSourceEntries }
func (RemoveLineCommand) Kind() CommandKind       { return CommandRemoveLine }
func (EditLineCommand) Kind() CommandKind         { return CommandEditLine }
func (ApplyRuleCommand) Kind() CommandKind        { return CommandApplyRule }
func (ResetCommand) Kind() CommandKind            { return CommandReset }
func (TriggerMatchingCommand) Kind() CommandKind  { return CommandTriggerMatching }

type commandHandler func(ctx context.Context, s *Session, cmd Command) error

var commandHandlers = map[CommandKind]commandHandler{
	CommandAddSourceEntries: handleAddSourceEntries,
	CommandRemoveLine:       handleRemoveLine,
	CommandEditLine:         handleEditLine,
	CommandApplyRule:        handleApplyRule,
	CommandReset:            handleReset,
	CommandTriggerMatching:  handleTriggerMatching,
}

// Dispatch routes cmd to its handler. Unknown kinds are rejected.
func (s *Session) Dispatch(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return domain.NewDomainError(domain.ErrorInvalidInput, "command", "missing command")
	}
	handler, ok := commandHandlers[cmd.Kind()]
	if !ok {
		return domain.NewDomainError(domain.ErrorUnknownCommand, "kind", fmt.Sprintf("no handler for %q", cmd.Kind()))
	}
	return handler(ctx, s, cmd)
}

func mismatched(cmd Command) error {
	return domain.NewDomainError(domain.ErrorInvalidInput, "command", fmt.Sprintf("unexpected payload %T for %s", cmd, cmd.Kind()))
}

func handleAddSourceEntries(ctx context.Context, s *Session, cmd Command) error {
	c, ok := cmd.(AddSourceEntriesCommand)
	if !ok {
		return mismatched(cmd)
	}

	entries := make([]domain.SourceEntry, 0, len(c.EntryIDs))
	for _, id := range c.EntryIDs {
		entry, err := s.uc.entries.FetchSourceEntry(ctx, id)
		if err != nil {
			return fmt.Errorf("could not fetch source entry %s: %w", id, err)
		}
		entries = append(entries, entry)
	}

	var rule *domain.ReconcileModel
	if c.RuleID != "" {
		model, err := s.uc.rules.FetchReconcileModel(ctx, c.RuleID)
		if err != nil {
			return fmt.Errorf("could not fetch reconcile model %s: %w", c.RuleID, err)
		}
		rule = &model
	}
	return s.AddSourceEntries(ctx, entries, rule, c.AllowPartial)
}

func handleRemoveLine(ctx context.Context, s *Session, cmd Command) error {
	c, ok := cmd.(RemoveLineCommand)
	if !ok {
		return mismatched(cmd)
	}
	return s.RemoveLine(ctx, c.Index)
}

func handleEditLine(ctx context.Context, s *Session, cmd Command) error {
	c, ok := cmd.(EditLineCommand)
	if !ok {
		return mismatched(cmd)
	}
	return s.EditLine(ctx, c.Index, c.Field, c.Value)
}

func handleApplyRule(ctx context.Context, s *Session, cmd Command) error {
	c, ok := cmd.(ApplyRuleCommand)
	if !ok {
		return mismatched(cmd)
	}
	model, err := s.uc.rules.FetchReconcileModel(ctx, c.RuleID)
	if err != nil {
		return fmt.Errorf("could not fetch reconcile model %s: %w", c.RuleID, err)
	}
	_, err = s.ApplyRule(ctx, model)
	return err
}

func handleReset(ctx context.Context, s *Session, _ Command) error {
	return s.Reset(ctx)
}

func handleTriggerMatching(ctx context.Context, s *Session, _ Command) error {
	_, err := s.TriggerMatchingRules(ctx)
	return err
}
