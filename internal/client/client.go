package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
)

// Driver is a connection to one cluster member able to run Cypher.
type Driver interface {
	Run(ctx context.Context, cypher string, params map[string]any) (*Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
	Target() string
	Encrypted() bool
}

// Credentials authenticate a Driver.
type Credentials struct {
	Username string
	Password string
}

// DriverFactory creates a Driver for a member address.
type DriverFactory func(addr string, creds Credentials, encrypted bool) (Driver, error)

// Neo4jDriver implements Driver over the official Neo4j Go driver. Each Run
// opens and closes its own session.
type Neo4jDriver struct {
	drv       neo4j.DriverWithContext
	target    string
	database  string
	encrypted bool
}

// Neo4jFactory returns a DriverFactory producing Neo4jDrivers bound to the
// given database (empty for the server default).
func Neo4jFactory(database string, connectTimeout time.Duration) DriverFactory {
	return func(addr string, creds Credentials, encrypted bool) (Driver, error) {
		return NewNeo4jDriver(addr, creds, encrypted, database, connectTimeout)
	}
}

// NewNeo4jDriver builds a direct (non-routing) driver to addr. Encryption is
// selected through the URI scheme; self-signed certificates are accepted.
func NewNeo4jDriver(addr string, creds Credentials, encrypted bool, database string, connectTimeout time.Duration) (*Neo4jDriver, error) {
	host, port, err := SplitAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("NewNeo4jDriver: %w", err)
	}
	scheme := "bolt"
	if encrypted {
		scheme = "bolt+ssc"
	}
	target := scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port))

	drv, err := neo4j.NewDriverWithContext(target,
		neo4j.BasicAuth(creds.Username, creds.Password, ""),
		func(c *neo4jconfig.Config) {
			if connectTimeout > 0 {
				c.SocketConnectTimeout = connectTimeout
			}
			c.MaxConnectionPoolSize = 10
		})
	if err != nil {
		return nil, fmt.Errorf("NewNeo4jDriver %s: %w", target, err)
	}
	return &Neo4jDriver{drv: drv, target: target, database: database, encrypted: encrypted}, nil
}

func (d *Neo4jDriver) Target() string  { return d.target }
func (d *Neo4jDriver) Encrypted() bool { return d.encrypted }

// VerifyConnectivity checks the member is reachable and accepts the credentials.
func (d *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	if err := d.drv.VerifyConnectivity(ctx); err != nil {
		return Classify(err)
	}
	return nil
}

// Run executes cypher in a fresh session and collects every row.
func (d *Neo4jDriver) Run(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
	session := d.drv.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database})
	defer func() { _ = session.Close(ctx) }()

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	out := &Result{Rows: make([]Row, 0, len(records))}
	if len(records) > 0 {
		out.Keys = records[0].Keys
	} else if keys, kerr := res.Keys(); kerr == nil {
		out.Keys = keys
	}
	for _, rec := range records {
		out.Rows = append(out.Rows, NewRow(rec.Keys, rec.Values))
	}
	return out, nil
}

// Close releases every connection held by the driver.
func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.drv.Close(ctx)
}

// SplitAddress extracts host and port from a member address such as
// "bolt://core1:7687" or "core1:7687". A missing port defaults to 7687.
func SplitAddress(addr string) (string, int, error) {
	hostport := addr
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		hostport = u.Host
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		if hostport == "" {
			return "", 0, fmt.Errorf("empty address")
		}
		return hostport, defaultBoltPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return host, port, nil
}

const defaultBoltPort = 7687
