// Package security derives severity-tagged findings from a port binding
// using a fixed rule set: database exposure, debug port exposure, admin
// interface exposure, privileged execution, and generic exposure.
package security

import (
	"sort"

	"github.com/portwatch/portwatch/internal/model"
	"github.com/portwatch/portwatch/internal/registry"
)

var debugPorts = map[int]struct{}{
	5005: {}, 9229: {}, 5858: {}, 4000: {},
}

var adminPorts = map[int]struct{}{
	2375: {}, 2376: {}, 8500: {}, 8200: {}, 5601: {}, 9990: {}, 15672: {},
}

var privilegedUsers = map[string]struct{}{
	"root":          {},
	"SYSTEM":        {},
	"Administrator": {},
	"LocalSystem":   {},
}

// Classifier applies the fixed security rule set to port bindings.
type Classifier struct {
	registry *registry.Registry
}

// New builds a Classifier backed by reg (registry.Default() if nil).
func New(reg *registry.Registry) *Classifier {
	if reg == nil {
		reg = registry.Default()
	}
	return &Classifier{registry: reg}
}

// Classify returns every finding the fixed rule set derives from b. The
// slice is unsorted; callers wanting the SecurityReport ordering should go
// through BuildReport instead.
func (c *Classifier) Classify(b model.PortBinding) []model.SecurityFlag {
	var flags []model.SecurityFlag

	exposed := b.IsExposed()
	localOnly := b.IsLocalOnly()
	_, isDBPort := c.registry.DatabasePorts()[b.Port]
	_, isDebugPort := debugPorts[b.Port]
	_, isAdminPort := adminPorts[b.Port]
	_, isPrivilegedUser := privilegedUsers[b.User]

	if exposed && isDBPort {
		sev := model.SeverityHigh
		if isPrivilegedUser {
			sev = model.SeverityCritical
		}
		flags = append(flags, model.SecurityFlag{
			Severity:       sev,
			Category:       model.CategoryDatabaseSec,
			Title:          "Database exposed on all interfaces",
			Description:    "A database port is bound to a wildcard address and reachable from any network interface.",
			Recommendation: "Bind to 127.0.0.1, firewall the port, or drop the process's privileges.",
			Binding:        b,
		})
	}

	if isDebugPort {
		if exposed {
			flags = append(flags, model.SecurityFlag{
				Severity:       model.SeverityCritical,
				Category:       model.CategoryDebug,
				Title:          "Debug port exposed",
				Description:    "A debugger-protocol port is reachable from any network interface.",
				Recommendation: "Bind debug ports to 127.0.0.1 and tunnel access over SSH.",
				Binding:        b,
			})
		} else if localOnly {
			flags = append(flags, model.SecurityFlag{
				Severity:       model.SeverityInfo,
				Category:       model.CategoryDebug,
				Title:          "Debug port open (local only)",
				Description:    "A debugger-protocol port is open but bound to loopback only.",
				Recommendation: "No action required while bound to loopback.",
				Binding:        b,
			})
		}
	}

	if exposed && isAdminPort {
		flags = append(flags, model.SecurityFlag{
			Severity:       model.SeverityHigh,
			Category:       model.CategoryConfiguration,
			Title:          "Admin interface exposed",
			Description:    "An administrative interface is reachable from any network interface.",
			Recommendation: "Restrict access via firewall rules or bind to an internal interface.",
			Binding:        b,
		})
	}

	if isPrivilegedUser {
		sev := model.SeverityWarning
		if b.Port >= 1024 || isDBPort {
			sev = model.SeverityHigh
		}
		flags = append(flags, model.SecurityFlag{
			Severity:       sev,
			Category:       model.CategoryPrivilege,
			Title:          "Service running with elevated privileges",
			Description:    "The process owning this binding runs as a privileged account.",
			Recommendation: "Drop privileges to a dedicated service account where possible.",
			Binding:        b,
		})
	}

	if exposed && !isDBPort && !isDebugPort && !isAdminPort {
		flags = append(flags, model.SecurityFlag{
			Severity:       model.SeverityWarning,
			Category:       model.CategoryNetworkExposure,
			Title:          "Port exposed on all interfaces",
			Description:    "This binding is reachable from any network interface.",
			Recommendation: "Confirm this exposure is intentional; otherwise bind to a narrower address.",
			Binding:        b,
		})
	}

	return flags
}

// ClassifyAll classifies every binding and concatenates the findings.
func (c *Classifier) ClassifyAll(bindings []model.PortBinding) []model.SecurityFlag {
	var all []model.SecurityFlag
	for _, b := range bindings {
		all = append(all, c.Classify(b)...)
	}
	return all
}

// Summary is the severity/category breakdown of a SecurityReport.
type Summary struct {
	CriticalCount int
	HighCount     int
	WarningCount  int
	InfoCount     int
	ByCategory    map[model.SecurityCategory]int
}

// Report is the full output of a classification pass: findings sorted by
// severity descending, plus grouped counts.
type Report struct {
	Findings []model.SecurityFlag
	Summary  Summary
}

// BuildReport classifies every binding and assembles a deterministic,
// severity-sorted Report.
func (c *Classifier) BuildReport(bindings []model.PortBinding) Report {
	findings := c.ClassifyAll(bindings)

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity > findings[j].Severity
	})

	sum := Summary{ByCategory: make(map[model.SecurityCategory]int)}
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityCritical:
			sum.CriticalCount++
		case model.SeverityHigh:
			sum.HighCount++
		case model.SeverityWarning:
			sum.WarningCount++
		case model.SeverityInfo:
			sum.InfoCount++
		}
		sum.ByCategory[f.Category]++
	}

	return Report{Findings: findings, Summary: sum}
}
