package model

// ServiceCategory buckets a well-known service by its general purpose.
type ServiceCategory string

const (
	CategoryDatabase   ServiceCategory = "DATABASE"
	CategoryWeb        ServiceCategory = "WEB"
	CategoryMessaging  ServiceCategory = "MESSAGING"
	CategoryCache      ServiceCategory = "CACHE"
	CategorySearch     ServiceCategory = "SEARCH"
	CategoryDev        ServiceCategory = "DEV"
	CategoryInfra      ServiceCategory = "INFRA"
	CategoryMonitoring ServiceCategory = "MONITORING"
	CategorySecurity   ServiceCategory = "SECURITY"
	CategoryOther      ServiceCategory = "OTHER"
)

// ServiceInfo identifies a well-known service bound to a port.
type ServiceInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    ServiceCategory `json:"category"`
}
