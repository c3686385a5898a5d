package executor

import "fmt"

// ErrorKind is a closed taxonomy of executor failure categories,
// populated into step.execute_result.error_kind on failure, alongside
// the raw upstream response when Post rejected one. Kept as a string type so callers
// can switch on Kind without type assertions.
type ErrorKind string

const (
	// ErrKindParse marks a failure to extract/parse the executor's
	// expected structured output from raw model text.
	ErrKindParse ErrorKind = "executor/parse"
	// ErrKindLLMTimeout marks an LLM call exceeding its configured
	// timeout.
	ErrKindLLMTimeout ErrorKind = "executor/llm-timeout"
	// ErrKindLLMTransport marks a non-timeout LLM transport failure.
	ErrKindLLMTransport ErrorKind = "executor/llm-transport"
	// ErrKindToolSessionOpen marks a tool invocation that failed because
	// its server session could not be opened.
	ErrKindToolSessionOpen ErrorKind = "tool/session-open"
	// ErrKindToolInvoke marks a per-call tool invocation failure.
	ErrKindToolInvoke ErrorKind = "tool/invoke"
	// ErrKindToolTimeout marks a tool invocation exceeding its timeout.
	ErrKindToolTimeout ErrorKind = "tool/timeout"
	// ErrKindPermission marks an agent invoking a tool/skill it is not
	// permitted to use. A local addition, since instruction_generation
	// and the tool executor both need to fail distinctly on a
	// permission check.
	ErrKindPermission ErrorKind = "executor/permission"
	// ErrKindNotReady marks a tool step executed before its instruction
	// content was filled. Also a local addition, for the same reason as
	// ErrKindPermission.
	ErrKindNotReady ErrorKind = "executor/not-ready"
)

// Error wraps an executor failure with its kind, compatible with
// errors.Is/errors.As via Unwrap.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports equality by Kind, so callers can do
// errors.Is(err, &executor.Error{Kind: executor.ErrKindParse}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError constructs an *Error of the given kind wrapping cause (which
// may be nil).
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
