package storage

// Key layout shared by every backend. These strings are a frozen contract:
// other vault implementations read and write the same keys.
//
//	glvault:key:<alias>              CredentialRecord JSON
//	glvault:index                    JSON array of registered aliases
//	glvault:audit:<alias>:<id>       AuditEntry JSON
//	glvault:audit_index:<alias>      JSON array of {id, ts}
const (
	namespace        = "glvault:"
	recordPrefix     = namespace + "key:"
	indexKey         = namespace + "index"
	auditPrefix      = namespace + "audit:"
	auditIndexPrefix = namespace + "audit_index:"
)

// Namespace returns the prefix every vault key lives under.
func Namespace() string { return namespace }

// KeyRecord returns the storage key for an alias's credential record.
func KeyRecord(alias string) string { return recordPrefix + alias }

// KeyIndex returns the storage key for the alias index.
func KeyIndex() string { return indexKey }

// KeyAudit returns the storage key for a single audit entry.
func KeyAudit(alias, id string) string { return auditPrefix + alias + ":" + id }

// KeyAuditIndex returns the storage key for an alias's audit index.
func KeyAuditIndex(alias string) string { return auditIndexPrefix + alias }

// AuditEntryPrefix returns the scan prefix covering all audit entries for an
// alias.
func AuditEntryPrefix(alias string) string { return auditPrefix + alias + ":" }

// AuditIDFromKey extracts the entry ID from a full audit entry key, or ""
// when the key does not belong to the alias.
func AuditIDFromKey(alias, key string) string {
	p := AuditEntryPrefix(alias)
	if len(key) <= len(p) || key[:len(p)] != p {
		return ""
	}
	return key[len(p):]
}
