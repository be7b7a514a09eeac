package shared

import "strings"

// Role identifies how a user participates in the approval chain.
type Role string

const (
	RolePengaju          Role = "pengaju"
	RoleAdmin            Role = "admin"
	RoleKPA              Role = "kpa"
	RoleValidatorProgram Role = "validator_program"
	RoleValidatorTU      Role = "validator_tu"
	RoleValidatorPPK     Role = "validator_ppk"
	RoleKepalaBidang     Role = "kepala_bidang"
	RoleBendahara        Role = "bendahara"
	RolePICVerifikator   Role = "pic_verifikator"
	RolePICTU            Role = "pic_tu"
	RolePICWilayah1      Role = "pic_wilayah_1"
	RolePICWilayah2      Role = "pic_wilayah_2"
	RolePICWilayah3      Role = "pic_wilayah_3"
)

// AllRoles lists every recognised role value.
func AllRoles() []Role {
	return []Role{
		RolePengaju,
		RoleAdmin,
		RoleKPA,
		RoleValidatorProgram,
		RoleValidatorTU,
		RoleValidatorPPK,
		RoleKepalaBidang,
		RoleBendahara,
		RolePICVerifikator,
		RolePICTU,
		RolePICWilayah1,
		RolePICWilayah2,
		RolePICWilayah3,
	}
}

// Valid reports whether the role is a recognised value.
func (r Role) Valid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// IsPIC reports whether the role is one of the department-scoped PIC verifier variants.
func (r Role) IsPIC() bool {
	return strings.HasPrefix(string(r), "pic_")
}

// IsValidator reports whether the role participates in the review chain.
func (r Role) IsValidator() bool {
	switch r {
	case RoleAdmin, RoleKPA, RoleValidatorProgram, RoleValidatorTU, RoleValidatorPPK,
		RoleKepalaBidang, RoleBendahara:
		return true
	}
	return r.IsPIC()
}
