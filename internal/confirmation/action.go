package confirmation

import (
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
)

const (
	prefixSelect        = "sel"
	prefixCancelAttempt = "cxl"
	prefixCommit        = "yes"
	prefixConfirmCancel = "no"

	sep = "|"
)

// Action is a decoded button press. It is one of SelectCategory,
// CancelAttempt, ConfirmCommit or ConfirmCancel.
type Action interface {
	AttemptKey() string
	isAction()
}

type SelectCategory struct {
	Key      string
	Category string
}

// CancelAttempt abandons the attempt from the category choice prompt.
type CancelAttempt struct {
	Key string
}

type ConfirmCommit struct {
	Key string
}

// ConfirmCancel abandons the attempt from the final confirmation prompt.
type ConfirmCancel struct {
	Key string
}

func (a SelectCategory) AttemptKey() string { return a.Key }
func (a CancelAttempt) AttemptKey() string  { return a.Key }
func (a ConfirmCommit) AttemptKey() string  { return a.Key }
func (a ConfirmCancel) AttemptKey() string  { return a.Key }

func (SelectCategory) isAction() {}
func (CancelAttempt) isAction()  {}
func (ConfirmCommit) isAction()  {}
func (ConfirmCancel) isAction()  {}

// Encode renders a as callback data. The category always goes last so it
// may itself contain the separator.
func Encode(a Action) string {
	switch v := a.(type) {
	case SelectCategory:
		return prefixSelect + sep + v.Key + sep + v.Category
	case CancelAttempt:
		return prefixCancelAttempt + sep + v.Key
	case ConfirmCommit:
		return prefixCommit + sep + v.Key
	case ConfirmCancel:
		return prefixConfirmCancel + sep + v.Key
	}
	return ""
}

// DecodeAction parses callback data produced by Encode.
func DecodeAction(data string) (Action, error) {
	parts := strings.SplitN(data, sep, 3)
	if len(parts) < 2 || parts[1] == "" {
		return nil, errors.ErrInvalidAction
	}
	key := parts[1]

	switch parts[0] {
	case prefixSelect:
		if len(parts) != 3 || strings.TrimSpace(parts[2]) == "" {
			return nil, errors.ErrInvalidAction
		}
		return SelectCategory{Key: key, Category: parts[2]}, nil
	case prefixCancelAttempt, prefixCommit, prefixConfirmCancel:
		if len(parts) != 2 {
			return nil, errors.ErrInvalidAction
		}
	default:
		return nil, errors.ErrInvalidAction
	}

	switch parts[0] {
	case prefixCancelAttempt:
		return CancelAttempt{Key: key}, nil
	case prefixCommit:
		return ConfirmCommit{Key: key}, nil
	default:
		return ConfirmCancel{Key: key}, nil
	}
}
