package domain

import (
	"fmt"
	"strings"
)

// Status is the result class of running a node.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "success":
		*s = StatusSuccess
	case "failure":
		*s = StatusFailure
	case "cancelled":
		*s = StatusCancelled
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Outcome is the value a leaf execution, a node or a whole tree resolves to.
// Failures and cancellations are ordinary data, not Go errors.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	// Node is the leaf the failure or cancellation originated at.
	Node string `json:"node,omitempty"`
	// Labels collects the error labels of the nodes a failure passed
	// through, innermost first.
	Labels []string `json:"labels,omitempty"`
}

// Success is the successful outcome.
func Success() Outcome {
	return Outcome{Status: StatusSuccess}
}

// Failure is a failed action with a reason.
func Failure(reason string) Outcome {
	return Outcome{Status: StatusFailure, Reason: reason}
}

// Cancelled reports a cancelled execution.
func Cancelled(reason string) Outcome {
	return Outcome{Status: StatusCancelled, Reason: reason}
}

// IsSuccess reports whether the outcome is a success.
func (o Outcome) IsSuccess() bool { return o.Status == StatusSuccess }

// IsFailure reports whether the outcome is a failure.
func (o Outcome) IsFailure() bool { return o.Status == StatusFailure }

// IsCancelled reports whether the outcome is a cancellation.
func (o Outcome) IsCancelled() bool { return o.Status == StatusCancelled }

// WithLabel returns a copy of o with label appended.
func (o Outcome) WithLabel(label string) Outcome {
	labels := make([]string, len(o.Labels), len(o.Labels)+1)
	copy(labels, o.Labels)
	o.Labels = append(labels, label)
	return o
}

func (o Outcome) String() string {
	if o.Status == StatusSuccess {
		return o.Status.String()
	}
	var sb strings.Builder
	sb.WriteString(o.Status.String())
	if o.Node != "" {
		fmt.Fprintf(&sb, " at %s", o.Node)
	}
	if o.Reason != "" {
		fmt.Fprintf(&sb, ": %s", o.Reason)
	}
	if len(o.Labels) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(o.Labels, ", "))
	}
	return sb.String()
}

// LeafCall is the request handed to a leaf executor.
type LeafCall struct {
	// Name is the known node to execute.
	Name string `json:"name"`
	// Node is the known node definition.
	Node KnownNode `json:"node"`
	// Tree is the identifier of the tree being run.
	Tree string `json:"tree"`
	// StepNumber is the step number of the tree node.
	StepNumber uint8 `json:"step_number"`
	// RunID correlates every call of one tree execution.
	RunID string `json:"run_id"`
}
