package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rbramwell/halin/internal/metrics"
	"github.com/rbramwell/halin/internal/model"
)

// Finding categories.
const (
	CategoryOverall       = "overall"
	CategoryConfiguration = "configuration"
	CategoryExtensions    = "extensions"
	CategoryIndexes       = "indexes"
	CategoryDiagnostics   = "diagnostics"
)

const unknownVersion = "unknown"

// Rule inspects a diagnostics package and returns zero or more findings.
// Rules must not modify the package.
type Rule func(pkg *model.Package) []model.InspectionResult

// Advisor runs a fixed list of rules over diagnostics packages.
type Advisor struct {
	rules []Rule
}

// NewAdvisor returns an Advisor running rules in the given order. With no
// rules it uses DefaultRules.
func NewAdvisor(rules ...Rule) *Advisor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Advisor{rules: rules}
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		VersionConsistency,
		ConfigConsistency,
		ExtensionPresence,
		IndexHealth,
		ProbeFailures,
	}
}

// Evaluate concatenates every rule's findings in registration order. A rule
// that panics contributes one ERROR finding instead of its output.
// Returns an empty (non-nil) slice when pkg is nil.
func (a *Advisor) Evaluate(pkg *model.Package) []model.InspectionResult {
	result := []model.InspectionResult{}
	if pkg == nil {
		return result
	}
	for i, rule := range a.rules {
		result = append(result, safeRun(i, rule, pkg)...)
	}
	for _, r := range result {
		metrics.Findings.WithLabelValues(string(r.Level)).Inc()
	}
	return result
}

func safeRun(i int, rule Rule, pkg *model.Package) (out []model.InspectionResult) {
	defer func() {
		if p := recover(); p != nil {
			out = []model.InspectionResult{{
				Level:          model.LevelError,
				Category:       CategoryDiagnostics,
				Finding:        fmt.Sprintf("Advisor rule %d failed: %v", i, p),
				Recommendation: "Report this as a bug in halin.",
			}}
		}
	}()
	return rule(pkg)
}

// VersionConsistency passes when every member reports the same server version.
func VersionConsistency(pkg *model.Package) []model.InspectionResult {
	if len(pkg.Nodes) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var versions []string
	for _, n := range pkg.Nodes {
		v := unknownVersion
		if n.Basics != nil && n.Basics.Version() != "" {
			v = n.Basics.Version()
		}
		if !seen[v] {
			seen[v] = true
			versions = append(versions, v)
		}
	}

	if len(versions) == 1 {
		return []model.InspectionResult{{
			Level:          model.LevelPass,
			Category:       CategoryOverall,
			Finding:        "All machines are running the same version of Neo4j, " + versions[0],
			Evidence:       versions,
			Recommendation: model.NoActionNeeded,
		}}
	}

	sorted := append([]string(nil), versions...)
	sort.Strings(sorted)
	return []model.InspectionResult{{
		Level:          model.LevelError,
		Category:       CategoryOverall,
		Finding:        "Machines in your cluster are running different versions of Neo4j! Detected versions: " + strings.Join(versions, ", "),
		Evidence:       sorted,
		Recommendation: "Consider baselining all machines on one version.",
	}}
}

// Settings that legitimately differ per member.
var perMemberSettings = []string{"advertised_address", "listen_address", "server_id", "dbms.directories."}

func perMemberSetting(name string) bool {
	for _, s := range perMemberSettings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// ConfigConsistency warns about settings whose value differs between members.
// Only members whose config probe answered are compared; a failed probe is
// reported by ProbeFailures. Fewer than two answering members produce nothing.
func ConfigConsistency(pkg *model.Package) []model.InspectionResult {
	if len(pkg.Nodes) < 2 {
		return nil
	}
	answered := make(map[string]bool)
	bySetting := make(map[string]map[string]string)
	for _, r := range pkg.RecordsFor(DomainConfig, "") {
		if r.Failed() {
			continue
		}
		answered[r.Node] = true
		if perMemberSetting(r.Key) {
			continue
		}
		if bySetting[r.Key] == nil {
			bySetting[r.Key] = make(map[string]string)
		}
		bySetting[r.Key][r.Node] = fmt.Sprint(r.Value)
	}
	if len(answered) < 2 || len(bySetting) == 0 {
		return nil
	}

	evidence := make(map[string]map[string]string)
	for name, values := range bySetting {
		distinct := make(map[string]bool)
		for _, v := range values {
			distinct[v] = true
		}
		// a setting missing on an answering member counts as a difference
		if len(distinct) > 1 || len(values) < len(answered) {
			evidence[name] = values
		}
	}

	if len(evidence) == 0 {
		return []model.InspectionResult{{
			Level:          model.LevelPass,
			Category:       CategoryConfiguration,
			Finding:        fmt.Sprintf("All members agree on %d settings", len(bySetting)),
			Recommendation: model.NoActionNeeded,
		}}
	}

	names := make([]string, 0, len(evidence))
	for name := range evidence {
		names = append(names, name)
	}
	sort.Strings(names)
	return []model.InspectionResult{{
		Level:          model.LevelWarn,
		Category:       CategoryConfiguration,
		Finding:        fmt.Sprintf("%d settings differ between members: %s", len(names), strings.Join(names, ", ")),
		Evidence:       evidence,
		Recommendation: "Members of one cluster should normally share configuration; review neo4j.conf on each machine.",
	}}
}

// ExtensionPresence warns when APOC could not be reached on some members.
func ExtensionPresence(pkg *model.Package) []model.InspectionResult {
	var missing []string
	for _, r := range pkg.RecordsFor(DomainAPOC, "version") {
		if r.Failed() {
			missing = append(missing, r.Node)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	finding := "APOC is not installed on any member"
	if len(missing) < len(pkg.Nodes) {
		finding = "APOC is missing on some members: " + strings.Join(missing, ", ")
	}
	return []model.InspectionResult{{
		Level:          model.LevelWarn,
		Category:       CategoryExtensions,
		Finding:        finding,
		Evidence:       missing,
		Recommendation: "Install the same APOC release on every member to enable metrics and log streaming.",
	}}
}

// IndexHealth warns when an index is in any state other than ONLINE.
func IndexHealth(pkg *model.Package) []model.InspectionResult {
	total := 0
	var offline []string
	for _, r := range pkg.RecordsFor(DomainIndex, "") {
		idx, ok := r.Value.(map[string]any)
		if !ok {
			continue
		}
		total++
		state, _ := idx["state"].(string)
		if !strings.EqualFold(state, "ONLINE") {
			desc, _ := idx["description"].(string)
			offline = append(offline, fmt.Sprintf("%s on %s (%s)", desc, r.Node, state))
		}
	}
	if total == 0 {
		return nil
	}
	if len(offline) == 0 {
		return []model.InspectionResult{{
			Level:          model.LevelPass,
			Category:       CategoryIndexes,
			Finding:        fmt.Sprintf("All %d indexes are online", total),
			Recommendation: model.NoActionNeeded,
		}}
	}
	sort.Strings(offline)
	return []model.InspectionResult{{
		Level:          model.LevelWarn,
		Category:       CategoryIndexes,
		Finding:        fmt.Sprintf("%d of %d indexes are not online", len(offline), total),
		Evidence:       offline,
		Recommendation: "Check population progress or failure messages with CALL db.indexes(), and recreate failed indexes.",
	}}
}

// ProbeFailures lists probes that failed, other than extension version checks
// which ExtensionPresence covers.
func ProbeFailures(pkg *model.Package) []model.InspectionResult {
	var failed []string
	for _, r := range pkg.Records {
		if !r.Failed() || r.Domain == DomainAPOC || r.Domain == DomainAlgo {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s %s/%s: %v", r.Node, r.Domain, r.Key, r.Value))
	}
	if len(failed) == 0 {
		return nil
	}
	return []model.InspectionResult{{
		Level:          model.LevelWarn,
		Category:       CategoryDiagnostics,
		Finding:        fmt.Sprintf("%d diagnostic probes failed", len(failed)),
		Evidence:       failed,
		Recommendation: "Check that the monitoring user has admin rights on the affected members.",
	}}
}
