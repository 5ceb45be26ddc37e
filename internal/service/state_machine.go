package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

// Transition is one allowed edge and the authority action it requires.
type Transition[S ~string] struct {
	From   S
	To     S
	Action models.WorkflowAction
}

// StateMachine is the transition table of one record kind. Anything not in
// the table is an invalid transition.
type StateMachine[S ~string] struct {
	kind   models.RecordKind
	edges  map[S]map[S]models.WorkflowAction
	states map[S]struct{}
}

// NewStateMachine builds a machine from its allowed transitions.
func NewStateMachine[S ~string](kind models.RecordKind, transitions ...Transition[S]) *StateMachine[S] {
	m := &StateMachine[S]{
		kind:   kind,
		edges:  make(map[S]map[S]models.WorkflowAction),
		states: make(map[S]struct{}),
	}
	for _, t := range transitions {
		if m.edges[t.From] == nil {
			m.edges[t.From] = make(map[S]models.WorkflowAction)
		}
		m.edges[t.From][t.To] = t.Action
		m.states[t.From] = struct{}{}
		m.states[t.To] = struct{}{}
	}
	return m
}

// Kind returns the record kind the machine governs.
func (m *StateMachine[S]) Kind() models.RecordKind {
	return m.kind
}

// Action returns the action required to move from one status to another, or
// an invalid transition error.
func (m *StateMachine[S]) Action(from, to S) (models.WorkflowAction, error) {
	if action, ok := m.edges[from][to]; ok {
		return action, nil
	}
	return "", appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("%s cannot move from %s to %s", m.kind, from, to))
}

// CanTransition reports whether the edge exists.
func (m *StateMachine[S]) CanTransition(from, to S) bool {
	_, ok := m.edges[from][to]
	return ok
}

// Targets lists the statuses reachable in one step, sorted.
func (m *StateMachine[S]) Targets(from S) []S {
	targets := make([]S, 0, len(m.edges[from]))
	for to := range m.edges[from] {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// IsTerminal reports whether a known status has no outgoing edges.
func (m *StateMachine[S]) IsTerminal(status S) bool {
	_, known := m.states[status]
	return known && len(m.edges[status]) == 0
}

// Parse resolves user input to a known status, ignoring case.
func (m *StateMachine[S]) Parse(raw string) (S, error) {
	value := strings.TrimSpace(raw)
	for status := range m.states {
		if strings.EqualFold(string(status), value) {
			return status, nil
		}
	}
	return "", appErrors.WithFields(appErrors.ErrValidation, fmt.Sprintf("unknown %s status %q", m.kind, value), map[string]string{"status": "oneof"})
}

// Transition tables for the three record kinds.
var (
	CertificateWorkflow = NewStateMachine(models.KindCertificate,
		Transition[models.CertificateStatus]{From: models.CertificateStatusPending, To: models.CertificateStatusApproved, Action: models.ActionApprove},
		Transition[models.CertificateStatus]{From: models.CertificateStatusPending, To: models.CertificateStatusRejected, Action: models.ActionReject},
		Transition[models.CertificateStatus]{From: models.CertificateStatusApproved, To: models.CertificateStatusReleased, Action: models.ActionRelease},
	)

	BlotterWorkflow = NewStateMachine(models.KindBlotter,
		Transition[models.BlotterStatus]{From: models.BlotterStatusOpen, To: models.BlotterStatusOngoing, Action: models.ActionUpdateStatus},
		Transition[models.BlotterStatus]{From: models.BlotterStatusOpen, To: models.BlotterStatusResolved, Action: models.ActionUpdateStatus},
		Transition[models.BlotterStatus]{From: models.BlotterStatusOngoing, To: models.BlotterStatusResolved, Action: models.ActionUpdateStatus},
	)

	IncidentWorkflow = NewStateMachine(models.KindIncident,
		Transition[models.IncidentStatus]{From: models.IncidentStatusRecorded, To: models.IncidentStatusMonitoring, Action: models.ActionUpdateStatus},
		Transition[models.IncidentStatus]{From: models.IncidentStatusMonitoring, To: models.IncidentStatusResolved, Action: models.ActionUpdateStatus},
	)
)
