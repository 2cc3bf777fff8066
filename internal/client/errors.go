package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	ErrUnreachable       = errors.New("client: member unreachable")
	ErrUnauthorized      = errors.New("client: authentication rejected")
	ErrProcedureNotFound = errors.New("client: procedure not found")
)

const (
	codeProcedureNotFound = "Neo.ClientError.Procedure.ProcedureNotFound"
	codeUnauthorized      = "Neo.ClientError.Security.Unauthorized"
	codeRateLimited       = "Neo.ClientError.Security.AuthenticationRateLimit"
)

// IsProcedureNotFound reports whether err means the server has no such
// procedure. It checks the structured server code first, then the sentinel,
// then the message text.
func IsProcedureNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) && nerr.Code == codeProcedureNotFound {
		return true
	}
	if errors.Is(err, ErrProcedureNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no procedure") ||
		strings.Contains(msg, "there is no procedure") ||
		strings.Contains(msg, "procedurenotfound")
}

// Classify maps connection-level failures onto ErrUnreachable and
// ErrUnauthorized, keeping the cause in the chain. Other errors are returned
// unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnreachable) || errors.Is(err, ErrUnauthorized) {
		return err
	}
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) && (nerr.Code == codeUnauthorized || nerr.Code == codeRateLimited) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	var cerr *neo4j.ConnectivityError
	if errors.As(err, &cerr) || neo4j.IsConnectivityError(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return err
}
