package model

// ProcessInfo is the extended, enrichment-only process detail attached to
// a binding — distinct from ProcessSample, which is produced by the
// monitor's sampling loop. An enricher fetches this on demand per binding.
type ProcessInfo struct {
	ThreadCount         int     `json:"threadCount"`
	OpenFileDescriptors int     `json:"openFileDescriptors"`
	MemoryRSSBytes      uint64  `json:"memoryRssBytes"`
	CPUPercent          float64 `json:"cpuPercent"`
}

// ContainerInfo is the container-runtime context of a binding, when the
// owning process lives inside a container.
type ContainerInfo struct {
	ContainerID   string `json:"containerId"`
	ContainerName string `json:"containerName"`
	Image         string `json:"image"`
	Status        string `json:"status"`
}

// EnrichedPortBinding owns a base PortBinding and holds optional
// references to the out-of-band context an Enricher attaches. An absent
// slot (nil) means "not requested or unavailable," never an error. This
// type is never aliased: an Enricher always returns a new value and never
// mutates the PortBinding fields it was given (enricher monotonicity).
type EnrichedPortBinding struct {
	Binding   PortBinding    `json:"binding"`
	Service   *ServiceInfo   `json:"service,omitempty"`
	Process   *ProcessInfo   `json:"process,omitempty"`
	Container *ContainerInfo `json:"container,omitempty"`
}
