// ABOUTME: Create, status change, archive, and delete workflows over the store
// ABOUTME: Each workflow is a small state machine; effects become visible only via snapshots
package listview

import (
	"context"
	"fmt"
	"maps"

	"github.com/harperreed/prospekt/models"
)

// WorkflowState is the phase of one mutation workflow.
type WorkflowState int

const (
	Idle WorkflowState = iota
	Targeted
	Confirming
	Committing
	Editing
)

func (s WorkflowState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Targeted:
		return "targeted"
	case Confirming:
		return "confirming"
	case Committing:
		return "committing"
	case Editing:
		return "editing"
	}
	return "unknown"
}

// Anchor is where the shell opened the status selector.
type Anchor struct {
	Row int
	Col int
}

// Confirmation is the visible state of the archive or delete workflow.
type Confirmation struct {
	State  WorkflowState
	Target models.Prospect
	Err    error
}

// StatusSelection is the visible state of the status change workflow.
type StatusSelection struct {
	State  WorkflowState
	Target models.Prospect
	Anchor Anchor
	Labels []string
	Err    error
}

// Draft is the visible state of the create workflow.
type Draft struct {
	State  WorkflowState
	Values map[string]string
	Err    error
}

type confirmFlow struct {
	op     string
	state  WorkflowState
	target models.Prospect
	err    error
}

type statusFlow struct {
	state  WorkflowState
	target models.Prospect
	anchor Anchor
	err    error
}

type createFlow struct {
	state  WorkflowState
	values map[string]string
	err    error
}

func emptyDraft() map[string]string {
	values := make(map[string]string, len(models.FormFields))
	for _, f := range models.FormFields {
		values[f] = ""
	}
	return values
}

// OpenCreate opens an empty create form.
func (s *Session) OpenCreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.create.state == Committing {
		return ErrCommitInProgress
	}
	s.create = createFlow{state: Editing, values: emptyDraft()}
	return nil
}

// SetDraftField edits one field of the open create form.
func (s *Session) SetDraftField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.create.state {
	case Editing:
	case Committing:
		return ErrCommitInProgress
	default:
		return ErrNoActiveWorkflow
	}
	if _, ok := s.create.values[field]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	s.create.values[field] = value
	return nil
}

// CreateState returns a copy of the create workflow state.
func (s *Session) CreateState() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Draft{State: s.create.state, Values: maps.Clone(s.create.values), Err: s.create.err}
}

// SubmitCreate stores the draft as a new prospect and closes the form.
// On failure the draft is kept and the form stays open.
func (s *Session) SubmitCreate(ctx context.Context) (string, error) {
	s.mu.Lock()
	switch s.create.state {
	case Editing:
	case Committing:
		s.mu.Unlock()
		return "", ErrCommitInProgress
	default:
		s.mu.Unlock()
		return "", ErrNoActiveWorkflow
	}
	s.create.state = Committing
	fields := make(models.Fields, len(s.create.values))
	for k, v := range s.create.values {
		fields[k] = v
	}
	s.mu.Unlock()

	id, err := s.list.store.Create(ctx, s.list.collection, fields)
	s.metrics.observeMutation("create", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.create.state = Editing
		s.create.err = err
		s.notice = fmt.Sprintf("Could not create prospect: %v", err)
		s.logger.Warn("create failed", "err", err)
		return "", fmt.Errorf("create prospect: %w", err)
	}
	s.create = createFlow{}
	s.logger.Info("prospect created", "id", id)
	return id, nil
}

// Create stores fields as a new prospect without going through the form.
func (s *Session) Create(ctx context.Context, fields models.Fields) (string, error) {
	id, err := s.list.store.Create(ctx, s.list.collection, fields)
	s.metrics.observeMutation("create", err)
	if err != nil {
		s.mu.Lock()
		s.notice = fmt.Sprintf("Could not create prospect: %v", err)
		s.mu.Unlock()
		s.logger.Warn("create failed", "err", err)
		return "", fmt.Errorf("create prospect: %w", err)
	}
	s.logger.Info("prospect created", "id", id)
	return id, nil
}

// CancelCreate discards the draft.
func (s *Session) CancelCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.create.state == Committing {
		return
	}
	s.create = createFlow{}
}

// OpenStatusSelector targets id for a status change.
func (s *Session) OpenStatusSelector(id string, anchor Anchor) error {
	p, ok := s.list.Lookup(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.state == Committing {
		return ErrCommitInProgress
	}
	if !ok {
		s.status = statusFlow{}
		return fmt.Errorf("status %s: %w", id, ErrNotFound)
	}
	s.status = statusFlow{state: Targeted, target: p, anchor: anchor}
	return nil
}

// SelectStatus writes label as the status of the targeted prospect.
func (s *Session) SelectStatus(ctx context.Context, label string) error {
	s.mu.Lock()
	switch s.status.state {
	case Targeted:
	case Committing:
		s.mu.Unlock()
		return ErrCommitInProgress
	default:
		s.mu.Unlock()
		return ErrNoActiveWorkflow
	}
	s.status.state = Committing
	id := s.status.target.ID
	s.mu.Unlock()

	err := s.list.store.Update(ctx, s.list.collection, id, models.Fields{models.FieldStatus: label})
	s.metrics.observeMutation("status", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status.state = Targeted
		s.status.err = err
		s.notice = fmt.Sprintf("Could not change status: %v", err)
		s.logger.Warn("status change failed", "id", id, "status", label, "err", err)
		return fmt.Errorf("set status of %s: %w", id, err)
	}
	s.status = statusFlow{}
	s.logger.Info("status changed", "id", id, "status", label)
	return nil
}

// CloseStatusSelector abandons the status change.
func (s *Session) CloseStatusSelector() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.state == Committing {
		return
	}
	s.status = statusFlow{}
}

// StatusState returns a copy of the status workflow state.
func (s *Session) StatusState() StatusSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSelection{
		State:  s.status.state,
		Target: s.status.target.Clone(),
		Anchor: s.status.anchor,
		Labels: s.catalog.Labels(),
		Err:    s.status.err,
	}
}

// RequestArchive asks for confirmation before archiving id.
func (s *Session) RequestArchive(id string) error {
	return s.request(&s.archive, id)
}

// ConfirmArchive sets archived on the target. The record drops out of the
// rendered rows once the store pushes the change back.
func (s *Session) ConfirmArchive(ctx context.Context) error {
	return s.confirm(ctx, &s.archive, func(ctx context.Context, id string) error {
		return s.list.store.Update(ctx, s.list.collection, id, models.Fields{models.FieldArchived: true})
	})
}

// CancelArchive closes the confirmation without touching the store.
func (s *Session) CancelArchive() { s.cancel(&s.archive) }

// ArchiveState returns a copy of the archive workflow state.
func (s *Session) ArchiveState() Confirmation { return s.confirmation(&s.archive) }

// RequestDelete asks for confirmation before deleting id.
func (s *Session) RequestDelete(id string) error {
	return s.request(&s.remove, id)
}

// ConfirmDelete permanently removes the target.
func (s *Session) ConfirmDelete(ctx context.Context) error {
	return s.confirm(ctx, &s.remove, func(ctx context.Context, id string) error {
		return s.list.store.Delete(ctx, s.list.collection, id)
	})
}

// CancelDelete closes the confirmation without touching the store.
func (s *Session) CancelDelete() { s.cancel(&s.remove) }

// DeleteState returns a copy of the delete workflow state.
func (s *Session) DeleteState() Confirmation { return s.confirmation(&s.remove) }

func (s *Session) request(f *confirmFlow, id string) error {
	p, ok := s.list.Lookup(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if f.state == Committing {
		return ErrCommitInProgress
	}
	if !ok {
		*f = confirmFlow{op: f.op}
		return fmt.Errorf("%s %s: %w", f.op, id, ErrNotFound)
	}
	*f = confirmFlow{op: f.op, state: Confirming, target: p}
	return nil
}

func (s *Session) confirm(ctx context.Context, f *confirmFlow, commit func(context.Context, string) error) error {
	s.mu.Lock()
	switch f.state {
	case Confirming:
	case Committing:
		s.mu.Unlock()
		return ErrCommitInProgress
	default:
		s.mu.Unlock()
		return ErrNoActiveWorkflow
	}
	f.state = Committing
	op, id := f.op, f.target.ID
	s.mu.Unlock()

	err := commit(ctx, id)
	s.metrics.observeMutation(op, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		f.state = Confirming
		f.err = err
		s.notice = fmt.Sprintf("Could not %s prospect: %v", op, err)
		s.logger.Warn(op+" failed", "id", id, "err", err)
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	*f = confirmFlow{op: op}
	s.logger.Info("prospect "+op+"d", "id", id)
	return nil
}

func (s *Session) cancel(f *confirmFlow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.state == Committing {
		return
	}
	*f = confirmFlow{op: f.op}
}

func (s *Session) confirmation(f *confirmFlow) Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Confirmation{State: f.state, Target: f.target.Clone(), Err: f.err}
}
