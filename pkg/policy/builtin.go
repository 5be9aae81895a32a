package policy

import (
	"time"
)

// GetBuiltinPolicies returns the default admission policy set.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		pathNamingPolicy(),
		systemNamespacePolicy(),
		routeRestrictionsPolicy(),
	}
}

// pathNamingPolicy denies a create whose path uses anything other than
// lowercase letters, digits, '-', '_' and '/'. This is narrower than the
// tree package's own parser, which rejects only empty or over-long
// components and the characters '/', '.', '[' and ']'.
func pathNamingPolicy() Policy {
	return Policy{
		Name:        "path-naming",
		Description: "Rejects path components outside the lowercase alphanumeric/hyphen/underscore convention",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package databeam.policies.naming

import rego.v1

deny contains violation if {
	input.operation == "create"
	not regex.match("^[a-z0-9_/-]+$", input.path)
	violation := {
		"message": sprintf("path '%s' must use only lowercase letters, digits, '-', '_', '/'", [input.path]),
		"severity": "error",
	}
}`,
	}
}

// systemNamespacePolicy reserves the /system prefix for the hub itself;
// only the "system" namespace identity may create or route under it.
func systemNamespacePolicy() Policy {
	return Policy{
		Name:        "system-namespace",
		Description: "Reserves the /system path prefix for the hub's own namespace",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"namespace", "reserved"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package databeam.policies.reserved

import rego.v1

deny contains violation if {
	startswith(input.path, "/system/")
	input.namespace != "system"
	violation := {
		"message": sprintf("namespace '%s' may not create or route under /system", [input.namespace]),
		"severity": "error",
	}
}`,
	}
}

// routeRestrictionsPolicy raises a warning-severity violation, which does
// not block the request, when a namespace other than "system" routes to a
// path under /system/.
func routeRestrictionsPolicy() Policy {
	return Policy{
		Name:        "route-restrictions",
		Description: "Warns when a route targets a path under /system outside routine telemetry wiring",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"routing"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package databeam.policies.routing

import rego.v1

deny contains violation if {
	input.operation == "route"
	startswith(input.path, "/system/")
	input.namespace != "system"
	violation := {
		"message": sprintf("namespace '%s' routing into /system requires review", [input.namespace]),
		"severity": "warning",
	}
}`,
	}
}
