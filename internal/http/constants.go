package httpx

// Page identifiers used for navigation state and content template lookup.
const (
	PageLogin       = "login"
	PageDashboard   = "dashboard"
	PageApprovals   = "approvals"
	PageUsers       = "users"
	PageUserForm    = "user-form"
	PageBarcodeCard = "barcode-card"
	PageRoles       = "roles"
)

// Named fragments rendered on their own.
const (
	FragmentBadge = "notification-badge"
	FragmentPanel = "notification-panel"
	FragmentUser  = "user-row"
)

// Template paths used for loading templates in tests and production.
const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates"
)

// ContentTemplateFor maps a page identifier to the template holding its main content.
func ContentTemplateFor(page string) string {
	return "content-" + page
}
