package objectstore

import (
	"fmt"
)

type change struct {
	kind     ChangeKind
	id       ObjectID
	before   Object
	prevNext uint64
}

// Checkpoint marks a position in the undo log. It is only valid while the
// transaction it was returned from is still open.
type Checkpoint struct {
	depth int
	mark  int
}

// BeginTransaction opens a (possibly nested) undo session.
func (s *Store) BeginTransaction() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = append(s.marks, len(s.log))
	return Checkpoint{depth: len(s.marks), mark: len(s.log)}
}

// UndoTo reverts every create and modify recorded since cp, newest first,
// and closes the session cp belongs to along with any nested in it.
func (s *Store) UndoTo(cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp.depth < 1 || cp.depth > len(s.marks) || s.marks[cp.depth-1] != cp.mark {
		return ErrStaleCheckpoint
	}
	for i := len(s.log) - 1; i >= cp.mark; i-- {
		if err := s.revert(s.log[i]); err != nil {
			return err
		}
	}
	s.log = s.log[:cp.mark]
	s.marks = s.marks[:cp.depth-1]
	return nil
}

// CommitTransaction closes the innermost session. Its changes stay in the log
// so an enclosing session can still undo them; once the outermost session is
// committed the log is dropped and the changes are durable.
func (s *Store) CommitTransaction() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.marks) == 0 {
		return ErrNoTransaction
	}
	s.marks = s.marks[:len(s.marks)-1]
	if len(s.marks) == 0 {
		s.log = nil
	}
	return nil
}

// Depth reports how many undo sessions are open.
func (s *Store) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marks)
}

func (s *Store) record(c change) {
	if len(s.marks) == 0 {
		return
	}
	s.log = append(s.log, c)
}

func (s *Store) revert(c change) error {
	t, ok := s.tables[c.id.Kind()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, c.id.Kind())
	}
	current, ok := t.rows[c.id.Instance]
	if !ok {
		return fmt.Errorf("undo %s of %s: %w", c.kind, c.id, ErrObjectNotFound)
	}
	switch c.kind {
	case Created:
		delete(t.rows, c.id.Instance)
		t.next = c.prevNext
		s.notify(Removed, current, nil)
	case Modified:
		t.rows[c.id.Instance] = c.before
		s.notify(Modified, current, c.before)
	}
	return nil
}
