package systems

// SystemInfo describes a simulation system for perf reporting.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "core", "physics", "ai")
}

// SystemRegistry holds metadata about all systems.
// This centralizes system naming so logs and the perf tracker stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all known systems to the registry.
// IDs match the perf phase names used by the game loop.
func (r *SystemRegistry) registerDefaults() {
	// Core
	r.Register(SystemInfo{ID: "clock", Name: "Clock", Description: "Advances time and fires due timers", Category: "core"})
	r.Register(SystemInfo{ID: "spatial_grid", Name: "Spatial Grid", Description: "Rebuilds hunter and food lookup grids", Category: "core"})

	// AI
	r.Register(SystemInfo{ID: "decide", Name: "Decide", Description: "Perception and decision policy per hunter", Category: "ai"})

	// Physics
	r.Register(SystemInfo{ID: "movement", Name: "Movement", Description: "Integrates steering, impulses and terrain collision", Category: "physics"})
	r.Register(SystemInfo{ID: "contacts", Name: "Contacts", Description: "Resolves combat, procreation starts and feeding", Category: "physics"})

	// Life cycle
	r.Register(SystemInfo{ID: "procreation", Name: "Procreation", Description: "Advances negotiations and rolls outcomes", Category: "lifecycle"})
	r.Register(SystemInfo{ID: "births", Name: "Births", Description: "Spawns deferred offspring under population caps", Category: "lifecycle"})

	// Cleanup
	r.Register(SystemInfo{ID: "cleanup", Name: "Cleanup", Description: "Removes dead hunters and eaten food", Category: "core"})
	r.Register(SystemInfo{ID: "telemetry", Name: "Telemetry", Description: "Window statistics and output", Category: "internal"})
}

// Register adds a system to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// Get returns system info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a system ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered systems.
func (r *SystemRegistry) All() []SystemInfo {
	return r.systems
}

// ByCategory returns systems filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// Categories returns all unique categories.
func (r *SystemRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, info := range r.systems {
		if !seen[info.Category] {
			seen[info.Category] = true
			cats = append(cats, info.Category)
		}
	}
	return cats
}

// IDs returns all system IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
