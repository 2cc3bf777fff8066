package query

import "time"

var clusterDependency = &Dependency{Type: DependsOnDeploy, Name: "cluster"}

var (
	ClusterOverview = Query{
		Name:        "cluster-overview",
		Description: "Lists every member of a causal cluster with its addresses, role and database",
		Cypher:      "CALL dbms.cluster.overview()",
		Columns: []Column{
			{Header: "ID", Accessor: "id"},
			{Header: "Addresses", Accessor: "addresses"},
			{Header: "Role", Accessor: "role"},
			{Header: "Database", Accessor: "database"},
		},
	}

	ClusterRole = Query{
		Name:       "cluster-role",
		Cypher:     "CALL dbms.cluster.role() YIELD role RETURN role",
		Columns:    []Column{{Header: "Role", Accessor: "role"}},
		Dependency: clusterDependency,
		Rate:       5 * time.Second,
	}

	// Ping is the round-trip probe used on single instances.
	Ping = Query{
		Name:    "ping",
		Cypher:  "RETURN 1 AS value",
		Columns: []Column{{Header: "Value", Accessor: "value"}},
	}

	DBMSComponents = Query{
		Name:        "dbms-components",
		Description: "Product name, versions and edition of the server",
		Cypher:      "CALL dbms.components() YIELD name, versions, edition RETURN name, versions, edition",
		Columns: []Column{
			{Header: "Name", Accessor: "name"},
			{Header: "Versions", Accessor: "versions"},
			{Header: "Edition", Accessor: "edition"},
		},
	}

	ComponentVersions = Query{
		Name:    "dbms-versions",
		Cypher:  "CALL dbms.components() YIELD versions RETURN versions AS value LIMIT 1",
		Columns: []Column{{Header: "Versions", Accessor: "value"}},
	}

	ComponentEdition = Query{
		Name:    "dbms-edition",
		Cypher:  "CALL dbms.components() YIELD edition RETURN edition AS value LIMIT 1",
		Columns: []Column{{Header: "Edition", Accessor: "value"}},
	}

	Procedures = Query{
		Name:    "dbms-procedures",
		Cypher:  "CALL dbms.procedures() YIELD name RETURN name",
		Columns: []Column{{Header: "Name", Accessor: "name"}},
	}

	ListConfig = Query{
		Name:   "dbms-list-config",
		Cypher: "CALL dbms.listConfig()",
		Columns: []Column{
			{Header: "Name", Accessor: "name"},
			{Header: "Value", Accessor: "value"},
			{Header: "Description", Accessor: "description"},
		},
	}

	AuthProvider = Query{
		Name:        "auth-provider",
		Description: "Configured authentication provider",
		Cypher:      "CALL dbms.listConfig() YIELD name, value WHERE name = 'dbms.security.auth_provider' RETURN value",
		Columns:     []Column{{Header: "Value", Accessor: "value"}},
	}

	JMX = Query{
		Name:   "jmx",
		Cypher: "CALL dbms.queryJmx('*:*')",
		Columns: []Column{
			{Header: "Name", Accessor: "name"},
			{Header: "Attributes", Accessor: "attributes"},
		},
	}

	JMXPageCache = Query{
		Name:        "jmx-page-cache",
		Description: "Page cache hits, faults and evictions",
		Cypher: `CALL dbms.queryJmx('org.neo4j:instance=kernel#0,name=Page cache')
			YIELD attributes
			RETURN attributes.Faults.value AS faults, attributes.Hits.value AS hits,
			       attributes.Evictions.value AS evictions, attributes.HitRatio.value AS hitRatio`,
		Columns: []Column{
			{Header: "Faults", Accessor: "faults"},
			{Header: "Hits", Accessor: "hits"},
			{Header: "Evictions", Accessor: "evictions"},
			{Header: "Hit Ratio", Accessor: "hitRatio"},
		},
		Dependency: &Dependency{Type: DependsOnEdition, Name: "enterprise"},
		Rate:       2 * time.Second,
	}

	Indexes = Query{
		Name:   "db-indexes",
		Cypher: "CALL db.indexes()",
		Columns: []Column{
			{Header: "Description", Accessor: "description"},
			{Header: "Label", Accessor: "label"},
			{Header: "Properties", Accessor: "properties"},
			{Header: "State", Accessor: "state"},
			{Header: "Type", Accessor: "type"},
			{Header: "Provider", Accessor: "provider"},
		},
	}

	Constraints = Query{
		Name:    "db-constraints",
		Cypher:  "CALL db.constraints()",
		Columns: []Column{{Header: "Description", Accessor: "description"}},
	}

	Labels = Query{
		Name:    "db-labels",
		Cypher:  "CALL db.labels() YIELD label RETURN collect(label) AS value",
		Columns: []Column{{Header: "Labels", Accessor: "value"}},
	}

	NodeCount = Query{
		Name:    "node-count",
		Cypher:  "MATCH (n) RETURN count(n) AS value",
		Columns: []Column{{Header: "Count", Accessor: "value"}},
	}

	APOCVersion = Query{
		Name:    "apoc-version",
		Cypher:  "RETURN apoc.version() AS value",
		Columns: []Column{{Header: "Version", Accessor: "value"}},
	}

	AlgoVersion = Query{
		Name:    "algo-version",
		Cypher:  "RETURN algo.version() AS value",
		Columns: []Column{{Header: "Version", Accessor: "value"}},
	}

	APOCMetricsGet = Query{
		Name: "apoc-metrics-get",
		Cypher: `CALL apoc.metrics.get($metric)
			YIELD timestamp, value
			RETURN timestamp, value
			ORDER BY timestamp DESC LIMIT $last`,
		Columns:    []Column{{Header: "Value", Accessor: "value"}},
		Dependency: &Dependency{Type: DependsOnProcedure, Name: "apoc.metrics.get"},
		Parameters: map[string]string{
			"last":   "Count of most recent items to fetch from the file",
			"metric": "Name of the metric to fetch",
		},
	}

	APOCStorageMetric = Query{
		Name:        "apoc-storage-metric",
		Description: "Disk free and total space behind each configured directory",
		Cypher: `CALL apoc.metrics.storage(null)
			YIELD setting, freeSpaceBytes, totalSpaceBytes, usableSpaceBytes, percentFree
			RETURN setting, freeSpaceBytes, totalSpaceBytes, usableSpaceBytes, percentFree`,
		Columns: []Column{
			{Header: "Location", Accessor: "setting"},
			{Header: "Free", Accessor: "freeSpaceBytes"},
			{Header: "Usable", Accessor: "usableSpaceBytes"},
			{Header: "Total", Accessor: "totalSpaceBytes"},
			{Header: "Percent Free", Accessor: "percentFree"},
		},
		Dependency: &Dependency{Type: DependsOnProcedure, Name: "apoc.metrics.storage"},
		Rate:       time.Minute,
	}

	ShowCurrentUser = Query{
		Name:   "show-current-user",
		Cypher: "CALL dbms.showCurrentUser()",
		Columns: []Column{
			{Header: "Username", Accessor: "username"},
			{Header: "Roles", Accessor: "roles"},
		},
	}

	ListUsers = Query{
		Name:   "list-users",
		Cypher: "CALL dbms.security.listUsers()",
		Columns: []Column{
			{Header: "Username", Accessor: "username"},
			{Header: "Roles", Accessor: "roles"},
			{Header: "Flags", Accessor: "flags"},
		},
	}

	ListRoles = Query{
		Name:   "list-roles",
		Cypher: "CALL dbms.security.listRoles()",
		Columns: []Column{
			{Header: "Role", Accessor: "role"},
			{Header: "Users", Accessor: "users"},
		},
		Dependency: &Dependency{Type: DependsOnEdition, Name: "enterprise"},
	}

	DeleteUser = Query{
		Name:       "delete-user",
		Cypher:     "CALL dbms.security.deleteUser($username)",
		Parameters: map[string]string{"username": "User to delete"},
	}

	DeleteRole = Query{
		Name:       "delete-role",
		Cypher:     "CALL dbms.security.deleteRole($role)",
		Parameters: map[string]string{"role": "Role to delete"},
		Dependency: &Dependency{Type: DependsOnEdition, Name: "enterprise"},
	}
)

// Catalog returns every known query keyed by name.
func Catalog() map[string]Query {
	all := []Query{
		ClusterOverview, ClusterRole, Ping, DBMSComponents, ComponentVersions, ComponentEdition,
		Procedures, ListConfig,
		AuthProvider, JMX, JMXPageCache, Indexes, Constraints, Labels, NodeCount,
		APOCVersion, AlgoVersion, APOCMetricsGet, APOCStorageMetric,
		ShowCurrentUser, ListUsers, ListRoles, DeleteUser, DeleteRole,
	}
	out := make(map[string]Query, len(all))
	for _, q := range all {
		out[q.Name] = q
	}
	return out
}
