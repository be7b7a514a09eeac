package shared

import "strings"

// Central office department that always receives office-wide visibility.
const CentralOfficeDepartment = "PUSDAL LH SUMA"

// Actor describes the authenticated user for authorization decisions.
type Actor struct {
	ID         string
	Name       string
	Role       Role
	Department string
}

// Departments splits the comma-separated department field into trimmed names.
func (a *Actor) Departments() []string {
	if a == nil {
		return nil
	}
	return SplitDepartments(a.Department)
}

// IsGlobalViewer reports whether the actor sees every department's rows.
// Oversight roles are always global; so is anyone attached to the central office.
func (a *Actor) IsGlobalViewer() bool {
	if a == nil {
		return false
	}
	switch a.Role {
	case RoleAdmin, RoleKPA, RoleValidatorProgram, RoleValidatorPPK, RoleBendahara:
		return true
	}
	return strings.Contains(strings.ToUpper(a.Department), CentralOfficeDepartment)
}

// AuthorizedForDepartment reports whether the actor may see rows for the
// given free-text department value, using the loose reconciliation rule.
func (a *Actor) AuthorizedForDepartment(department string) bool {
	if a.IsGlobalViewer() {
		return true
	}
	for _, own := range a.Departments() {
		if DepartmentMatches(department, own) {
			return true
		}
	}
	return false
}

// SplitDepartments splits a comma-separated department string into trimmed names.
func SplitDepartments(raw string) []string {
	parts := strings.Split(raw, ",")
	depts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			depts = append(depts, p)
		}
	}
	return depts
}

// DepartmentMatches reconciles two free-text department values using
// case-insensitive substring containment in either direction. Requester
// department strings are not strictly normalised, so exact matching would
// drop legitimate rows.
func DepartmentMatches(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
