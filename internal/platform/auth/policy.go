package auth

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

//go:embed policy/default.yaml
var defaultPolicyYAML []byte

// policyDocument is the on-disk layout of a permission table.
type policyDocument struct {
	Roles map[string][]string `yaml:"roles"`
}

// DefaultPermissionTable returns the table shipped with the binary.
func DefaultPermissionTable() (PermissionTable, error) {
	return LoadPolicyYAML(bytes.NewReader(defaultPolicyYAML))
}

// LoadPolicyFile reads a YAML permission table from path.
func LoadPolicyFile(path string) (PermissionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()

	t, err := LoadPolicyYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadPolicyYAML decodes and validates a permission table. Unknown role
// names and malformed entries are reported together.
func LoadPolicyYAML(r io.Reader) (PermissionTable, error) {
	var doc policyDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	var result *multierror.Error
	grants := make(map[Role][]string, len(doc.Roles))
	for name, perms := range doc.Roles {
		role := ParseRole(name)
		if !role.IsKnown() {
			result = multierror.Append(result, fmt.Errorf("unknown role %q", name))
			continue
		}
		grants[role] = append(grants[role], perms...)
		if err := checkEntries(role, perms); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	t := NewPermissionTable(grants)
	if err := ValidateTable(t); err != nil {
		return nil, err
	}
	return t, nil
}

// checkEntries reports empty, padded and duplicated permission strings.
func checkEntries(role Role, perms []string) error {
	var result *multierror.Error
	seen := make(map[string]bool, len(perms))
	for i, p := range perms {
		switch {
		case p == "":
			result = multierror.Append(result, fmt.Errorf("%s: entry %d is empty", role, i))
		case strings.TrimSpace(p) != p || strings.ContainsAny(p, " \t\n"):
			result = multierror.Append(result, fmt.Errorf("%s: permission %q contains whitespace", role, p))
		case seen[p]:
			result = multierror.Append(result, fmt.Errorf("%s: permission %q listed twice", role, p))
		}
		seen[p] = true
	}
	return result.ErrorOrNil()
}

// ValidateTable checks that Administrator holds every permission granted to
// any other role, so no screen is open to a role but closed to admins.
func ValidateTable(t PermissionTable) error {
	var result *multierror.Error
	for _, role := range KnownRoles() {
		if role == RoleAdministrator {
			continue
		}
		for _, p := range t.List(role) {
			if !t.Grants(RoleAdministrator, p) {
				result = multierror.Append(result,
					fmt.Errorf("%s holds %q but %s does not", role, p, RoleAdministrator))
			}
		}
	}
	for role := range t {
		if !role.IsKnown() {
			result = multierror.Append(result, fmt.Errorf("table contains unknown role %d", int(role)))
		}
	}
	return result.ErrorOrNil()
}

// MarshalPolicyYAML renders t in the same layout LoadPolicyYAML reads.
func MarshalPolicyYAML(t PermissionTable) ([]byte, error) {
	doc := policyDocument{Roles: make(map[string][]string, len(t))}
	for _, role := range KnownRoles() {
		if _, ok := t[role]; ok {
			doc.Roles[role.String()] = t.List(role)
		}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	return buf.Bytes(), nil
}
