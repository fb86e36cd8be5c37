package registry

// Product identifies one remote product surface. All resource types belong
// to exactly one product, and imports, snapshots, and pushes are scoped to
// a single product at a time.
type Product string

// ProductSWG is the secure web gateway product.
const ProductSWG Product = "swg"

// Definition describes one resource type in the closed registry.
type Definition struct {
	// Type is the registry tag stored in the cache and used on the wire.
	Type string

	// Product owns this type.
	Product Product

	// IDField is the payload field holding the remote identifier.
	IDField string

	// NameField is the payload field used as the natural key when matching
	// baseline entries against a target tenant.
	NameField string

	// DeleteByAbsence marks types where an id missing from a full fetch
	// means the resource was deleted remotely. Append-only audit-style
	// types leave this false so history survives re-imports.
	DeleteByAbsence bool
}

// definitions lists every importable resource type. Import order does not
// matter; push order is defined separately by PushOrder.
var definitions = []Definition{
	{Type: "rule_label", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "time_interval", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "workload_group", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "bandwidth_class", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "url_category", Product: ProductSWG, IDField: "id", NameField: "configuredName", DeleteByAbsence: true},
	{Type: "ip_destination_group", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "ip_source_group", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "network_service", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "network_svc_group", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "network_app", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "network_app_group", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "cloud_app_policy", Product: ProductSWG, IDField: "app", NameField: "app_name", DeleteByAbsence: true},
	{Type: "cloud_app_ssl_policy", Product: ProductSWG, IDField: "app", NameField: "app_name", DeleteByAbsence: true},
	{Type: "dlp_engine", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "dlp_dictionary", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "location", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "location_group", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "url_filtering_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "firewall_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "firewall_dns_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "firewall_ips_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "ssl_inspection_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "nat_control_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "forwarding_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "dlp_web_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "bandwidth_control_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "traffic_capture_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	// Cloud app control rules carry their rule class in the payload "type"
	// field; a concrete client routes on it below the Source interface.
	{Type: "cloud_app_control_rule", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "admin_user", Product: ProductSWG, IDField: "id", NameField: "loginName", DeleteByAbsence: true},
	{Type: "admin_role", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "department", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "group", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "user", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: true},
	{Type: "allowlist", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: false},
	{Type: "denylist", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: false},
	// Audit-style trail of remote admin activity. Append-only: absence from
	// a later fetch never implies deletion.
	{Type: "activity_record", Product: ProductSWG, IDField: "id", NameField: "name", DeleteByAbsence: false},
}

var byType = func() map[string]Definition {
	m := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Type] = d
	}
	return m
}()

// Definitions returns the registry entries for a product, in declaration
// order.
func Definitions(p Product) []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, d := range definitions {
		if d.Product == p {
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the definition for a type tag.
func Lookup(resourceType string) (Definition, bool) {
	d, ok := byType[resourceType]
	return d, ok
}

// Types returns all type tags for a product.
func Types(p Product) []string {
	defs := Definitions(p)
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Type
	}
	return out
}

// PushOrder lists pushable resource types in dependency order: referenced
// objects before the rules that reference them. Pushes walk this list tier
// by tier within every pass.
var PushOrder = []string{
	// Tier 1 - no dependencies
	"rule_label",
	"time_interval",
	"workload_group",
	"bandwidth_class",
	// Tier 2 - objects
	"url_category",
	"ip_destination_group",
	"ip_source_group",
	"network_service",
	"network_svc_group",
	"network_app_group",
	"dlp_engine",
	"dlp_dictionary",
	// Tier 3 - locations
	"location",
	// Tier 4 - rules
	"url_filtering_rule",
	"firewall_rule",
	"firewall_dns_rule",
	"firewall_ips_rule",
	"ssl_inspection_rule",
	"nat_control_rule",
	"forwarding_rule",
	"dlp_web_rule",
	"bandwidth_control_rule",
	"traffic_capture_rule",
	"cloud_app_control_rule",
	// Tier 5 - merge-only list resources
	"allowlist",
	"denylist",
}

// SkipTypes are environment-bound or read-only types that are never pushed.
var SkipTypes = map[string]struct{}{
	"user":                 {},
	"group":                {},
	"department":           {},
	"admin_user":           {},
	"admin_role":           {},
	"location_group":       {},
	"network_app":          {}, // system-defined catalog, read-only
	"cloud_app_policy":     {}, // reference data, not policy
	"cloud_app_ssl_policy": {},
	"activity_record":      {},
}

// SkipIfPredefined lists types whose system-managed instances exist in
// every tenant and must be skipped by content regardless of diff outcome.
var SkipIfPredefined = map[string]struct{}{
	"dlp_engine":      {},
	"dlp_dictionary":  {},
	"url_category":    {},
	"network_service": {},
}

// PredefinedNames lists known system-instance names per predefined-skip
// type. An entry is recognized as predefined when its payload carries a
// true "predefined" flag or its natural key appears here.
var PredefinedNames = map[string]map[string]struct{}{
	"dlp_engine": {
		"EXTERNAL":                  {},
		"GLBA":                      {},
		"HIPAA":                     {},
		"PCI":                       {},
		"SOCIAL_SECURITY_NUMBERS":   {},
		"CREDIT_CARDS":              {},
		"FINANCIAL_STATEMENTS":      {},
		"SALESFORCE_REPORT_LEAKAGE": {},
	},
	"dlp_dictionary": {
		"CREDIT_CARDS":            {},
		"SOCIAL_SECURITY_NUMBERS": {},
		"FINANCIAL_STATEMENTS":    {},
		"MEDICAL_INFORMATION":     {},
	},
	"url_category": {
		"OTHER_ADULT_MATERIAL":  {},
		"SOCIAL_NETWORKING":     {},
		"PROFESSIONAL_SERVICES": {},
	},
	"network_service": {
		"HTTP":     {},
		"HTTPS":    {},
		"DNS":      {},
		"FTP":      {},
		"SSH":      {},
		"ICMP_ANY": {},
	},
}

// MergeTypes are singleton list resources pushed by merging: baseline
// entries absent from the target are added, nothing is ever removed.
var MergeTypes = map[string]struct{}{
	"allowlist": {},
	"denylist":  {},
}

// MergeListField maps each merge type to the payload field holding its
// entry list.
var MergeListField = map[string]string{
	"allowlist": "allowUrls",
	"denylist":  "denyUrls",
}

// ReadOnlyFields are server-managed fields stripped from both sides before
// any payload comparison or push.
var ReadOnlyFields = map[string]struct{}{
	"id":                 {},
	"predefined":         {},
	"lastModifiedBy":     {},
	"lastModifiedTime":   {},
	"lastModifiedByUser": {},
	"createdBy":          {},
	"creationTime":       {},
	"createdAt":          {},
	"updatedAt":          {},
	"modifiedTime":       {},
	"modifiedBy":         {},
	"isDeleted":          {},
	"deleted":            {},
}

// DiffIgnoredFields carry no configuration signal and are excluded from
// snapshot field-level diffs.
var DiffIgnoredFields = map[string]struct{}{
	"modifiedBy":       {},
	"modifiedTime":     {},
	"modifiedAt":       {},
	"creationTime":     {},
	"createdAt":        {},
	"lastModifiedTime": {},
	"modifiedByUser":   {},
	"createdByUser":    {},
}
