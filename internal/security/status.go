package security

import (
	"fmt"
	"strings"
)

// Status is a user-facing outcome message.
type Status struct {
	Header  string `json:"header"`
	Body    string `json:"body"`
	IsError bool   `json:"is_error"`
}

func (s Status) String() string { return s.Header + ": " + s.Body }

// Message builds an informational status.
func Message(header, body string) Status {
	return Status{Header: header, Body: body}
}

// Failure builds an error status for an action that never reached the cluster.
func Failure(action string, err error) Status {
	return Status{Header: "Error", Body: fmt.Sprintf("%s: %v", action, err), IsError: true}
}

// FromClusterOp summarises a cluster-wide operation.
func FromClusterOp(action string, res ClusterOpResult) Status {
	if res.Success() {
		return Status{
			Header: "Success",
			Body:   fmt.Sprintf("%s succeeded on %d of %d members", action, len(res.Members), len(res.Members)),
		}
	}
	failed := res.Failures()
	parts := make([]string, len(failed))
	for i, f := range failed {
		parts[i] = fmt.Sprintf("%s: %v", f.Node, f.Err)
	}
	return Status{
		Header:  "Error",
		Body:    fmt.Sprintf("%s failed on %d of %d members (%s)", action, len(failed), len(res.Members), strings.Join(parts, "; ")),
		IsError: true,
	}
}
