package queue

import (
	"fmt"
	"strconv"
)

// ProtocolError reports a script reply whose shape the client does not
// recognize. Callers treat it as recoverable.
type ProtocolError struct {
	Op    string
	Reply any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: unrecognized reply %v", e.Op, e.Reply)
}

func unknown(op string, reply any) error {
	return &ProtocolError{Op: op, Reply: reply}
}

func replyString(vals []any, i int) (string, bool) {
	if i >= len(vals) {
		return "", false
	}
	s, ok := vals[i].(string)
	return s, ok
}

// replyInt accepts both integer replies and numeric bulk strings; mids
// popped from lists come back as strings.
func replyInt(vals []any, i int) (int64, bool) {
	if i >= len(vals) {
		return 0, false
	}
	switch v := vals[i].(type) {
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
