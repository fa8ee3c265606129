package msauth

// AccountProfile captures the tenant-dependent behavior differences between
// personal Microsoft accounts and organizational (work/school) accounts.
type AccountProfile struct {
	Tenant string
}

// IsPersonal reports whether the tenant serves personal Microsoft accounts.
// The "consumers" endpoint is personal-only; "common" accepts both, and the
// personal-account code paths (sub claim, no folder provisioning) are the
// safe default there. A GUID or named tenant is organizational.
func (p AccountProfile) IsPersonal() bool {
	return p.Tenant == "consumers" || p.Tenant == "common"
}

// IdentityClaim names the id_token claim that identifies the user: "sub" for
// personal tenants, "oid" for organizational ones.
func (p AccountProfile) IdentityClaim() string {
	if p.IsPersonal() {
		return "sub"
	}

	return "oid"
}
