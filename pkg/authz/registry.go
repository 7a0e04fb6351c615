package authz

const (
	RolePrivacyChampion = "privacy-champion"
	RolePrivacyOfficer  = "privacy-officer"
	RoleAnonymous       = "anonymous"
)

const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDecide = "decide"
)

const (
	ObjectFieldProposals   = "fields.proposals"
	ObjectFieldCatalog     = "fields.catalog"
	ObjectFieldBackfill    = "fields.backfill"
	ObjectRecords          = "records.records"
	ObjectRecordCustomData = "records.custom-data"
	ObjectAuditEvents      = "audit.events"
)
